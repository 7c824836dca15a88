package ga

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("ga: invalid config")

type Config struct {
	Population     int     `json:"population"`
	Generations    int     `json:"generations"`
	Elite          int     `json:"elite"`
	TournamentSize int     `json:"tournament_size"`
	CrossoverRate  float64 `json:"crossover_rate"`
	MutationRate   float64 `json:"mutation_rate"`

	// PFreeInit - вероятность оставить станок операции свободным в начальной популяции
	PFreeInit float64 `json:"p_free_init"`
	// MutationPFree - вероятность освободить станок при мутации ресурса
	MutationPFree float64 `json:"mutation_p_free"`
}

func (c Config) Validate() error {
	if c.Population <= 1 {
		return fmt.Errorf(
			"%w: размер популяции должен быть > 1 (получено %d)",
			ErrInvalidConfig,
			c.Population,
		)
	}
	if c.Generations <= 0 {
		return fmt.Errorf(
			"%w: количество поколений должно быть > 0 (получено %d)",
			ErrInvalidConfig,
			c.Generations,
		)
	}
	if c.Elite < 0 || c.Elite >= c.Population {
		return fmt.Errorf(
			"%w: число элитных особей должно быть в диапазоне [0, population) (получено %d)",
			ErrInvalidConfig,
			c.Elite,
		)
	}
	if c.TournamentSize <= 0 {
		return fmt.Errorf(
			"%w: размер турнира должен быть > 0 (получено %d)",
			ErrInvalidConfig,
			c.TournamentSize,
		)
	}
	probs := []struct {
		name string
		v    float64
	}{
		{"кроссовера", c.CrossoverRate},
		{"мутации", c.MutationRate},
		{"свободного станка при инициализации", c.PFreeInit},
		{"свободного станка при мутации", c.MutationPFree},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf(
				"%w: вероятность %s должна быть в диапазоне [0,1] (получено %f)",
				ErrInvalidConfig,
				p.name,
				p.v,
			)
		}
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		Population:     100,
		Generations:    200,
		Elite:          4,
		TournamentSize: 5,
		CrossoverRate:  0.90,
		MutationRate:   0.15,

		PFreeInit:     1.0,
		MutationPFree: 0.4,
	}
}
