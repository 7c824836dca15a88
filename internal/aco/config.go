package aco

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("aco: invalid config")

type Config struct {
	Iterations       int `json:"iterations"`
	IterationsPerJob int `json:"iterations_per_job"`

	Ants int `json:"ants"`

	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`

	Rho float64 `json:"rho"`

	Q float64 `json:"q"`

	Tau0 float64 `json:"tau0"`

	// CandidateK - размер списка кандидатов; 0 - все оставшиеся работы
	CandidateK int `json:"candidate_k"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:       0,
		IterationsPerJob: 10,

		Ants: 20,

		Alpha: 1.0,
		Beta:  2.0,

		Rho: 0.20,
		Q:   100.0,

		Tau0: 1.0,

		CandidateK: 0,
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 && c.IterationsPerJob <= 0 {
		return fmt.Errorf(
			"%w: должно быть задано Iterations > 0 или IterationsPerJob > 0",
			ErrInvalidConfig,
		)
	}
	if c.Ants <= 0 {
		return fmt.Errorf(
			"%w: ants должно быть > 0 (получено %d)",
			ErrInvalidConfig, c.Ants,
		)
	}
	if c.Alpha < 0 {
		return fmt.Errorf(
			"%w: alpha должно быть >= 0 (получено %f)",
			ErrInvalidConfig, c.Alpha,
		)
	}
	if c.Beta < 0 {
		return fmt.Errorf(
			"%w: beta должно быть >= 0 (получено %f)",
			ErrInvalidConfig, c.Beta,
		)
	}
	if c.Rho <= 0 || c.Rho >= 1 {
		return fmt.Errorf(
			"%w: rho должно лежать в интервале (0,1) (получено %f)",
			ErrInvalidConfig, c.Rho,
		)
	}
	if c.Q <= 0 {
		return fmt.Errorf(
			"%w: Q должно быть > 0 (получено %f)",
			ErrInvalidConfig, c.Q,
		)
	}
	if c.Tau0 <= 0 {
		return fmt.Errorf(
			"%w: tau0 должно быть > 0 (получено %f)",
			ErrInvalidConfig, c.Tau0,
		)
	}
	if c.CandidateK < 0 {
		return fmt.Errorf(
			"%w: CandidateK должно быть >= 0 (получено %d)",
			ErrInvalidConfig, c.CandidateK,
		)
	}
	return nil
}
