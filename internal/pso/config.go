package pso

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("pso: invalid config")

type Config struct {
	Iterations       int `json:"iterations"`
	IterationsPerJob int `json:"iterations_per_job"`

	Particles int `json:"particles"`

	W  float64 `json:"w"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`

	// VMax <= 0 снимает ограничение скорости
	VMax float64 `json:"vmax"`

	// PosMin == PosMax == 0 снимает ограничение позиции
	PosMin float64 `json:"pos_min"`
	PosMax float64 `json:"pos_max"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:       0,
		IterationsPerJob: 10,

		Particles: 30,

		W:  0.729,
		C1: 1.49445,
		C2: 1.49445,

		VMax:   0.25,
		PosMin: 0.0,
		PosMax: 1.0,
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 && c.IterationsPerJob <= 0 {
		return fmt.Errorf(
			"%w: должно быть задано Iterations > 0 или IterationsPerJob > 0",
			ErrInvalidConfig,
		)
	}
	if c.Particles <= 0 {
		return fmt.Errorf(
			"%w: Particles должно быть > 0 (получено %d)",
			ErrInvalidConfig, c.Particles,
		)
	}
	if c.W < 0 {
		return fmt.Errorf(
			"%w: W должно быть >= 0 (получено %f)",
			ErrInvalidConfig, c.W,
		)
	}
	if c.C1 < 0 || c.C2 < 0 {
		return fmt.Errorf(
			"%w: C1 и C2 должны быть >= 0 (получено %f, %f)",
			ErrInvalidConfig, c.C1, c.C2,
		)
	}
	if c.PosMin >= c.PosMax && !(c.PosMin == 0 && c.PosMax == 0) {
		return fmt.Errorf(
			"%w: для ограничения PosMin должно быть < PosMax (получено %f >= %f)",
			ErrInvalidConfig, c.PosMin, c.PosMax,
		)
	}
	return nil
}
