package ga

import (
	"fmt"
	"sort"

	"flexShop/internal/bandit"
)

// LearningConfig - параметры самообучающегося GA. Вероятности кроссовера и мутации
// выбираются epsilon-жадными агентами по состоянию популяции.
type LearningConfig struct {
	Population int `json:"population"`

	// Generations - явный бюджет поколений; при 0 используется GenerationsPerJobMachine·jobs·machines
	Generations              int `json:"generations"`
	GenerationsPerJobMachine int `json:"generations_per_job_machine"`

	// PFreeInit - вероятность оставить станок свободным в начальной популяции
	PFreeInit float64 `json:"p_free_init"`

	Eps          float64 `json:"eps"`
	LearningRate float64 `json:"learning_rate"`
	Discount     float64 `json:"discount"`

	// Веса оценки состояния: сумма, разброс и максимум makespan относительно первого поколения
	WeightSum    float64 `json:"weight_sum"`
	WeightSpread float64 `json:"weight_spread"`
	WeightMax    float64 `json:"weight_max"`

	// Thresholds - возрастающие пороги оценки состояния, состояний len+1
	Thresholds []float64 `json:"thresholds"`

	CrossoverRates []float64 `json:"crossover_rates"`
	MutationRates  []float64 `json:"mutation_rates"`
}

func DefaultLearningConfig() LearningConfig {
	thresholds := make([]float64, 0, 20)
	for i := 1; i <= 20; i++ {
		thresholds = append(thresholds, float64(i)/20)
	}
	pc := make([]float64, 0, 11)
	for i := 0; i <= 10; i++ {
		pc = append(pc, float64(40+5*i)/100)
	}
	pm := make([]float64, 0, 11)
	for i := 0; i <= 10; i++ {
		pm = append(pm, float64(1+2*i)/100)
	}
	return LearningConfig{
		Population:               100,
		GenerationsPerJobMachine: 10,

		Eps:          0.85,
		LearningRate: 0.75,
		Discount:     0.2,

		WeightSum:    0.35,
		WeightSpread: 0.35,
		WeightMax:    0.3,

		Thresholds:     thresholds,
		CrossoverRates: pc,
		MutationRates:  pm,
	}
}

func (c LearningConfig) Validate() error {
	if c.Population <= 1 {
		return fmt.Errorf("%w: размер популяции должен быть > 1 (получено %d)", ErrInvalidConfig, c.Population)
	}
	if c.Generations < 0 || c.GenerationsPerJobMachine < 0 || (c.Generations == 0 && c.GenerationsPerJobMachine == 0) {
		return fmt.Errorf("%w: должно быть задано Generations > 0 или GenerationsPerJobMachine > 0", ErrInvalidConfig)
	}
	if c.PFreeInit < 0 || c.PFreeInit > 1 {
		return fmt.Errorf("%w: PFreeInit должно быть в диапазоне [0,1] (получено %f)", ErrInvalidConfig, c.PFreeInit)
	}
	if c.WeightSum < 0 || c.WeightSpread < 0 || c.WeightMax < 0 {
		return fmt.Errorf("%w: веса оценки состояния должны быть >= 0", ErrInvalidConfig)
	}
	if !sort.Float64sAreSorted(c.Thresholds) {
		return fmt.Errorf("%w: пороги должны возрастать", ErrInvalidConfig)
	}
	rates := []struct {
		name   string
		values []float64
	}{
		{"CrossoverRates", c.CrossoverRates},
		{"MutationRates", c.MutationRates},
	}
	for _, r := range rates {
		if len(r.values) == 0 {
			return fmt.Errorf("%w: набор %s пуст", ErrInvalidConfig, r.name)
		}
		for _, v := range r.values {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: %s должно быть в диапазоне [0,1] (получено %f)", ErrInvalidConfig, r.name, v)
			}
		}
	}
	if err := (bandit.Config{
		States:       c.states(),
		Actions:      1,
		Eps:          c.Eps,
		LearningRate: c.LearningRate,
		Discount:     c.Discount,
	}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c LearningConfig) states() int { return len(c.Thresholds) + 1 }

// SARSAGenerations - число первых поколений, в которых агенты обучаются по SARSA;
// дальше используется Q-learning.
func (c LearningConfig) SARSAGenerations() int {
	return c.states() * len(c.MutationRates) / 2
}

func (c LearningConfig) generations(jobs, machines int) int {
	if c.Generations > 0 {
		return c.Generations
	}
	return c.GenerationsPerJobMachine * jobs * machines
}
