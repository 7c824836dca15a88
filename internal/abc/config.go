package abc

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("abc: invalid config")

type Config struct {
	Iterations              int `json:"iterations"`
	IterationsPerJobMachine int `json:"iterations_per_job_machine"`

	FoodSources int `json:"food_sources"`
	Onlookers   int `json:"onlookers"`
	Limit       int `json:"limit"`

	// Pbt - вероятность, что наблюдатель выберет лучший из двух источников
	Pbt float64 `json:"pbt"`
	// Pmpi - вероятность рекомбинации вместо возмущения
	Pmpi float64 `json:"pmpi"`

	// Доли от числа работ (Nrp, Nswp) и от числа операций (Nmc), с отбрасыванием дробной части
	NrpFraction  float64 `json:"nrp_fraction"`
	NswpFraction float64 `json:"nswp_fraction"`
	NmcFraction  float64 `json:"nmc_fraction"`

	PFreeInit float64 `json:"p_free_init"`
	PFree     float64 `json:"p_free"`
}

func DefaultConfig() Config {
	return Config{
		IterationsPerJobMachine: 30,

		FoodSources: 100,
		Onlookers:   200,
		Limit:       50,

		Pbt:  0.85,
		Pmpi: 0.90,

		NrpFraction:  0.2,
		NswpFraction: 0.2,
		NmcFraction:  0.3,

		PFreeInit: 0,
		PFree:     0,
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
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit должно быть > 0 (получено %d)", ErrInvalidConfig, c.Limit)
	}
	probs := map[string]float64{
		"Pbt":          c.Pbt,
		"Pmpi":         c.Pmpi,
		"NrpFraction":  c.NrpFraction,
		"NswpFraction": c.NswpFraction,
		"NmcFraction":  c.NmcFraction,
		"PFreeInit":    c.PFreeInit,
		"PFree":        c.PFree,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: %s должно быть в диапазоне [0,1] (получено %f)", ErrInvalidConfig, name, p)
		}
	}
	return nil
}

func (c Config) iterations(jobs, machines int) int {
	if c.Iterations > 0 {
		return c.Iterations
	}
	return c.IterationsPerJobMachine * jobs * machines
}
