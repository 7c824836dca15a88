package fjsp

import (
	"fmt"
	"math/rand"
)

// GeneratorConfig - параметры случайного экземпляра в духе наборов Брандимарте.
type GeneratorConfig struct {
	Jobs     int
	Machines int

	MinOps int
	MaxOps int

	// MaxFlex - верхняя граница размера множества допустимых станков операции.
	MaxFlex int

	MinTime int
	MaxTime int
}

func DefaultGeneratorConfig(jobs, machines int) GeneratorConfig {
	minOps := machines / 2
	if minOps < 1 {
		minOps = 1
	}
	maxFlex := machines / 2
	if maxFlex < 1 {
		maxFlex = 1
	}
	return GeneratorConfig{
		Jobs:     jobs,
		Machines: machines,
		MinOps:   minOps,
		MaxOps:   machines,
		MaxFlex:  maxFlex,
		MinTime:  1,
		MaxTime:  20,
	}
}

func (c GeneratorConfig) Validate() error {
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be > 0 (got %d)", c.Jobs)
	}
	if c.Machines <= 0 {
		return fmt.Errorf("machines must be > 0 (got %d)", c.Machines)
	}
	if c.MinOps <= 0 || c.MaxOps < c.MinOps {
		return fmt.Errorf("invalid operation bounds [%d,%d]", c.MinOps, c.MaxOps)
	}
	if c.MaxFlex <= 0 || c.MaxFlex > c.Machines {
		return fmt.Errorf("max flexibility must lie in [1,%d] (got %d)", c.Machines, c.MaxFlex)
	}
	if c.MinTime <= 0 || c.MaxTime < c.MinTime {
		return fmt.Errorf("invalid time bounds [%d,%d]", c.MinTime, c.MaxTime)
	}
	return nil
}

// RandomInstance строит случайный экземпляр; паникует на некорректной конфигурации.
func RandomInstance(cfg GeneratorConfig, rng *rand.Rand) *Instance {
	if rng == nil {
		panic("генератор случайных чисел не инициализирован (nil)")
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	machinesPool := make([]int, cfg.Machines)
	for i := range machinesPool {
		machinesPool[i] = i
	}

	jobs := make([][]Operation, cfg.Jobs)
	for j := range jobs {
		nOps := cfg.MinOps + rng.Intn(cfg.MaxOps-cfg.MinOps+1)
		jobs[j] = make([]Operation, nOps)
		for o := range jobs[j] {
			// Частичная перестановка Фишера-Йетса даёт случайное подмножество станков
			flex := 1 + rng.Intn(cfg.MaxFlex)
			for k := 0; k < flex; k++ {
				r := k + rng.Intn(cfg.Machines-k)
				machinesPool[k], machinesPool[r] = machinesPool[r], machinesPool[k]
			}
			set := make([]int, flex)
			copy(set, machinesPool[:flex])

			jobs[j][o] = Operation{
				Duration: cfg.MinTime + rng.Intn(cfg.MaxTime-cfg.MinTime+1),
				Machines: set,
			}
		}
	}

	inst, err := NewInstance(jobs)
	if err != nil {
		panic(err)
	}
	return inst
}
