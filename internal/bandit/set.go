package bandit

import (
	"fmt"
	"math/rand"
)

// Set связывает значения параметра оператора с действиями агента.
type Set[T any] struct {
	values []T
	agent  *EpsGreedy
}

// NewSet создаёт агента с len(values) действиями.
func NewSet[T any](values []T, states int, eps, lr, discount float64) (*Set[T], error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: action values must not be empty", ErrInvalidConfig)
	}
	agent, err := New(Config{
		States:       states,
		Actions:      len(values),
		Eps:          eps,
		LearningRate: lr,
		Discount:     discount,
	})
	if err != nil {
		return nil, err
	}
	return &Set[T]{values: append([]T(nil), values...), agent: agent}, nil
}

// Choose выбирает действие и возвращает его индекс и значение.
func (s *Set[T]) Choose(state int, rng *rand.Rand) (int, T) {
	a := s.agent.Select(state, rng)
	return a, s.values[a]
}

// Reward обновляет агента, если действие было выбрано (a >= 0) и выбор был не единственным.
func (s *Set[T]) Reward(state, action, next int, reward float64) {
	if action < 0 || len(s.values) < 2 {
		return
	}
	s.agent.UpdateQL(state, action, next, reward)
}

// RewardSARSA - то же, что Reward, но с действием, уже выбранным в next.
func (s *Set[T]) RewardSARSA(state, action, next, nextAction int, reward float64) {
	if action < 0 || len(s.values) < 2 {
		return
	}
	s.agent.UpdateSARSA(state, action, next, nextAction, reward)
}

// BestValue - значение кэшированного лучшего действия состояния.
func (s *Set[T]) BestValue(state int) T { return s.values[s.agent.Best(state)] }

func (s *Set[T]) Values() []T { return s.values }

func (s *Set[T]) Agent() *EpsGreedy { return s.agent }
