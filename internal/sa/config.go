package sa

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("sa: invalid config")

// Тип окрестности
type Neighborhood string

const (
	// NeighborhoodCritical - все повторные вставки случайной критической работы
	NeighborhoodCritical Neighborhood = "critical"
	NeighborhoodSwap     Neighborhood = "swap"
	NeighborhoodInsert   Neighborhood = "insert"
)

type Config struct {
	Iterations       int `json:"iterations"`
	IterationsPerJob int `json:"iterations_per_job"`

	InitialTemp float64 `json:"initial_temp"`
	FinalTemp   float64 `json:"final_temp"`
	Alpha       float64 `json:"alpha"`

	Neighborhood Neighborhood `json:"neighborhood"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:       5000,
		IterationsPerJob: 0,

		InitialTemp: 100.0,
		FinalTemp:   1.0,
		Alpha:       0.99,

		Neighborhood: NeighborhoodCritical,
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 && c.IterationsPerJob <= 0 {
		return fmt.Errorf(
			"%w: должно быть задано Iterations > 0 или IterationsPerJob > 0",
			ErrInvalidConfig,
		)
	}
	if c.InitialTemp <= 0 {
		return fmt.Errorf(
			"%w: InitialTemp должно быть > 0 (получено %f)",
			ErrInvalidConfig,
			c.InitialTemp,
		)
	}
	if c.FinalTemp <= 0 {
		return fmt.Errorf(
			"%w: FinalTemp должно быть > 0 (получено %f)",
			ErrInvalidConfig,
			c.FinalTemp,
		)
	}
	if c.FinalTemp >= c.InitialTemp {
		return fmt.Errorf(
			"%w: FinalTemp должно быть < InitialTemp (получено %f >= %f)",
			ErrInvalidConfig,
			c.FinalTemp,
			c.InitialTemp,
		)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf(
			"%w: alpha должно лежать в интервале (0,1) (получено %f)",
			ErrInvalidConfig,
			c.Alpha,
		)
	}
	switch c.Neighborhood {
	case NeighborhoodCritical, NeighborhoodSwap, NeighborhoodInsert:
		// ok
	default:
		return fmt.Errorf(
			"%w: неизвестный тип окрестности %q",
			ErrInvalidConfig,
			c.Neighborhood,
		)
	}
	return nil
}
