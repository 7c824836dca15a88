package slabc

import (
	"errors"
	"fmt"
	"sort"

	"flexShop/internal/bandit"
)

var ErrInvalidConfig = errors.New("slabc: invalid config")

type Config struct {
	// Iterations > 0 задаёт число итераций явно,
	// иначе оно равно IterationsPerJobMachine * jobs * machines.
	Iterations              int `json:"iterations"`
	IterationsPerJobMachine int `json:"iterations_per_job_machine"`

	FoodSources int `json:"food_sources"`
	Onlookers   int `json:"onlookers"`
	Scouts      int `json:"scouts"`

	// Терпение разведчика интерполируется между LimitLow и LimitUp по состоянию источника.
	LimitLow int `json:"limit_low"`
	LimitUp  int `json:"limit_up"`

	// PFreeInit - вероятность оставить операцию свободной при переинициализации
	PFreeInit float64 `json:"p_free_init"`

	Eps                 float64 `json:"eps"`
	LearningRate        float64 `json:"learning_rate"`
	Discount            float64 `json:"discount"`
	NoImprovementReward float64 `json:"no_improvement_reward"`

	// Thresholds - возрастающие пороги дискретизации качества, состояний len+1
	Thresholds []float64 `json:"thresholds"`

	// Наборы действий бандитов
	Pmpi         []float64 `json:"pmpi"`
	NrpFractions []float64 `json:"nrp_fractions"`
	Pswap        []float64 `json:"pswap"`
	SwapPhyb     []float64 `json:"swap_phyb"`
	SwitchPhyb   []float64 `json:"switch_phyb"`

	// KeepTrace включает запись трассы итераций
	KeepTrace bool `json:"keep_trace"`
}

func DefaultConfig() Config {
	thresholds := make([]float64, 0, 19)
	for i := 1; i <= 19; i++ {
		thresholds = append(thresholds, float64(i)*0.05)
	}
	return Config{
		IterationsPerJobMachine: 30,

		FoodSources: 100,
		Onlookers:   100,
		Scouts:      5,

		LimitLow: 10,
		LimitUp:  40,

		PFreeInit: 1.0,

		Eps:                 0.85,
		LearningRate:        0.75,
		Discount:            0.2,
		NoImprovementReward: 0,

		Thresholds: thresholds,

		Pmpi:         []float64{0.7},
		NrpFractions: []float64{0.1, 0.2, 0.3},
		Pswap:        []float64{0.5},
		SwapPhyb:     []float64{0, 0.4, 0.8},
		SwitchPhyb:   []float64{0, 0.4, 0.8},
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 && c.IterationsPerJobMachine <= 0 {
		return fmt.Errorf("%w: должно быть задано Iterations > 0 или IterationsPerJobMachine > 0", ErrInvalidConfig)
	}
	if c.FoodSources < 2 {
		return fmt.Errorf("%w: число источников должно быть >= 2 (получено %d)", ErrInvalidConfig, c.FoodSources)
	}
	if c.Onlookers < 0 {
		return fmt.Errorf("%w: число наблюдателей должно быть >= 0 (получено %d)", ErrInvalidConfig, c.Onlookers)
	}
	if c.Scouts <= 0 {
		return fmt.Errorf("%w: число разведчиков должно быть > 0 (получено %d)", ErrInvalidConfig, c.Scouts)
	}
	if c.LimitLow <= 0 || c.LimitUp < c.LimitLow {
		return fmt.Errorf("%w: нужно 0 < LimitLow <= LimitUp (получено %d, %d)", ErrInvalidConfig, c.LimitLow, c.LimitUp)
	}
	if c.PFreeInit < 0 || c.PFreeInit > 1 {
		return fmt.Errorf("%w: PFreeInit должно быть в диапазоне [0,1] (получено %f)", ErrInvalidConfig, c.PFreeInit)
	}
	if !sort.Float64sAreSorted(c.Thresholds) {
		return fmt.Errorf("%w: пороги должны возрастать", ErrInvalidConfig)
	}
	for _, t := range c.Thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("%w: порог должен быть в диапазоне [0,1] (получено %f)", ErrInvalidConfig, t)
		}
	}

	probs := []struct {
		name   string
		values []float64
	}{
		{"Pmpi", c.Pmpi},
		{"Pswap", c.Pswap},
		{"SwapPhyb", c.SwapPhyb},
		{"SwitchPhyb", c.SwitchPhyb},
	}
	for _, p := range probs {
		if len(p.values) == 0 {
			return fmt.Errorf("%w: набор %s пуст", ErrInvalidConfig, p.name)
		}
		for _, v := range p.values {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: %s должно быть в диапазоне [0,1] (получено %f)", ErrInvalidConfig, p.name, v)
			}
		}
	}
	if len(c.NrpFractions) == 0 {
		return fmt.Errorf("%w: набор NrpFractions пуст", ErrInvalidConfig)
	}
	for _, v := range c.NrpFractions {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: NrpFractions должно быть в диапазоне (0,1] (получено %f)", ErrInvalidConfig, v)
		}
	}
	return bandit.Config{
		States:       c.states(),
		Actions:      1,
		Eps:          c.Eps,
		LearningRate: c.LearningRate,
		Discount:     c.Discount,
	}.Validate()
}

func (c Config) states() int { return len(c.Thresholds) + 1 }

// iterations - бюджет итераций для экземпляра.
func (c Config) iterations(jobs, machines int) int {
	if c.Iterations > 0 {
		return c.Iterations
	}
	return c.IterationsPerJobMachine * jobs * machines
}

// nrpValues переводит доли в число копируемых позиций, не меньше одной.
func (c Config) nrpValues(jobs int) []int {
	out := make([]int, len(c.NrpFractions))
	for i, f := range c.NrpFractions {
		out[i] = max(1, int(f*float64(jobs)))
	}
	return out
}
