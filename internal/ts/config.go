package ts

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("ts: invalid config")

// Neighborhood определяет тип окрестности.
type Neighborhood string

const (
	// NeighborhoodBlock - полный перебор обменов блоков длины 1..BlockMax
	NeighborhoodBlock  Neighborhood = "block"
	NeighborhoodInsert Neighborhood = "insert"
	NeighborhoodSwap   Neighborhood = "swap"
)

type Config struct {
	Iterations       int `json:"iterations"`
	IterationsPerJob int `json:"iterations_per_job"`

	TabuTenure int `json:"tabu_tenure"`

	TabuTenureRand int `json:"tabu_tenure_rand"`

	// NeighborsPerIter - число случайных ходов для insert и swap
	NeighborsPerIter int `json:"neighbors_per_iter"`

	// BlockMax - наибольшая длина блока; 0 означает round(sqrt(jobs))
	BlockMax int `json:"block_max"`

	Neighborhood Neighborhood `json:"neighborhood"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:       500,
		IterationsPerJob: 0,

		TabuTenure:     7,
		TabuTenureRand: 3,

		NeighborsPerIter: 90,
		BlockMax:         0,
		Neighborhood:     NeighborhoodBlock,
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 && c.IterationsPerJob <= 0 {
		return fmt.Errorf(
			"%w: должно быть задано Iterations > 0 или IterationsPerJob > 0",
			ErrInvalidConfig,
		)
	}
	if c.TabuTenure <= 0 {
		return fmt.Errorf(
			"%w: TabuTenure должно быть > 0 (получено %d)",
			ErrInvalidConfig,
			c.TabuTenure,
		)
	}
	if c.TabuTenureRand < 0 {
		return fmt.Errorf(
			"%w: TabuTenureRand должно быть >= 0 (получено %d)",
			ErrInvalidConfig,
			c.TabuTenureRand,
		)
	}
	if c.NeighborsPerIter <= 0 {
		return fmt.Errorf(
			"%w: NeighborsPerIter должно быть > 0 (получено %d)",
			ErrInvalidConfig,
			c.NeighborsPerIter,
		)
	}
	if c.BlockMax < 0 {
		return fmt.Errorf(
			"%w: BlockMax должно быть >= 0 (получено %d)",
			ErrInvalidConfig,
			c.BlockMax,
		)
	}
	switch c.Neighborhood {
	case NeighborhoodBlock, NeighborhoodInsert, NeighborhoodSwap:
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
