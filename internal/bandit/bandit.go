package bandit

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidConfig = errors.New("bandit: invalid config")

type Config struct {
	States  int
	Actions int

	// Eps - доля жадных выборов: при p <= Eps берётся лучшее действие
	Eps          float64
	LearningRate float64
	Discount     float64
}

func (c Config) Validate() error {
	if c.States <= 0 {
		return fmt.Errorf("%w: states must be > 0 (got %d)", ErrInvalidConfig, c.States)
	}
	if c.Actions <= 0 {
		return fmt.Errorf("%w: actions must be > 0 (got %d)", ErrInvalidConfig, c.Actions)
	}
	if c.Eps < 0 || c.Eps > 1 {
		return fmt.Errorf("%w: eps must lie in [0,1] (got %f)", ErrInvalidConfig, c.Eps)
	}
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("%w: learning rate must lie in (0,1] (got %f)", ErrInvalidConfig, c.LearningRate)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("%w: discount must lie in [0,1] (got %f)", ErrInvalidConfig, c.Discount)
	}
	return nil
}

// EpsGreedy - табличный epsilon-жадный агент с Q-learning и SARSA обновлениями.
// Лучшее действие по каждому состоянию кэшируется и поддерживается инкрементально.
type EpsGreedy struct {
	cfg  Config
	q    [][]float64
	best []int
}

func New(cfg Config) (*EpsGreedy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &EpsGreedy{
		cfg:  cfg,
		q:    make([][]float64, cfg.States),
		best: make([]int, cfg.States),
	}
	for s := range b.q {
		b.q[s] = make([]float64, cfg.Actions)
	}
	return b, nil
}

func (b *EpsGreedy) NumStates() int  { return b.cfg.States }
func (b *EpsGreedy) NumActions() int { return b.cfg.Actions }

// Best - кэшированное лучшее действие состояния.
func (b *EpsGreedy) Best(state int) int { return b.best[state] }

func (b *EpsGreedy) Q(state, action int) float64 { return b.q[state][action] }

// Select выбирает действие по одному равномерному числу. Агент с единственным
// действием возвращает 0, не расходуя генератор.
func (b *EpsGreedy) Select(state int, rng *rand.Rand) int {
	if b.cfg.Actions == 1 {
		return 0
	}
	return ActionFromProb(b.cfg.Actions, b.best[state], rng.Float64(), b.cfg.Eps)
}

// ActionFromProb: p <= eps даёт лучшее действие, иначе остаток (eps, 1]
// растягивается на [0, 1) и делится на n равных частей.
func ActionFromProb(n, best int, p, eps float64) int {
	if p <= eps {
		return best
	}
	p = (p - eps) / (1 - eps)
	return int(p*float64(n)) % n
}

// UpdateQL: Q[s][a] = (1-lr)·Q[s][a] + lr·(r + γ·Q[s'][best(s')]).
func (b *EpsGreedy) UpdateQL(state, action, next int, reward float64) {
	b.update(state, action, b.q[next][b.best[next]], reward)
}

// UpdateSARSA использует действие, фактически выбранное в следующем состоянии.
func (b *EpsGreedy) UpdateSARSA(state, action, next, nextAction int, reward float64) {
	b.update(state, action, b.q[next][nextAction], reward)
}

func (b *EpsGreedy) update(state, action int, nextQ, reward float64) {
	lr := b.cfg.LearningRate
	b.q[state][action] = (1-lr)*b.q[state][action] + lr*(reward+b.cfg.Discount*nextQ)
	b.updateBest(state, action)
}

func (b *EpsGreedy) updateBest(state, action int) {
	prev := b.best[state]
	row := b.q[state]
	switch {
	case row[action] > row[prev]:
		b.best[state] = action
	case action == prev:
		// значение лучшего действия могло уменьшиться
		best := 0
		for a := 1; a < len(row); a++ {
			if row[a] > row[best] {
				best = a
			}
		}
		b.best[state] = best
	}
}

// Validate проверяет согласованность кэша лучших действий с таблицей.
func (b *EpsGreedy) Validate() error {
	for s, row := range b.q {
		for a, v := range row {
			if v > row[b.best[s]] {
				return fmt.Errorf("state %d: action %d has Q=%f above cached best %d (Q=%f)", s, a, v, b.best[s], row[b.best[s]])
			}
		}
	}
	return nil
}
