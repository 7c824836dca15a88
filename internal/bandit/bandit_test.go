package bandit_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"flexShop/internal/bandit"
)

func newAgent(t *testing.T, states, actions int) *bandit.EpsGreedy {
	t.Helper()
	b, err := bandit.New(bandit.Config{
		States:       states,
		Actions:      actions,
		Eps:          0.2,
		LearningRate: 0.5,
		Discount:     0.5,
	})
	require.NoError(t, err)
	return b
}

func TestActionFromProb(t *testing.T) {
	require.Equal(t, 2, bandit.ActionFromProb(5, 2, 0.18, 0.2))
	require.Equal(t, 1, bandit.ActionFromProb(5, 2, 0.45, 0.2))
	require.Equal(t, 2, bandit.ActionFromProb(5, 2, 0.2, 0.2), "the threshold itself is greedy")
	require.Equal(t, 0, bandit.ActionFromProb(5, 2, 1.0, 0.2), "p=1 wraps around")
	require.Equal(t, 4, bandit.ActionFromProb(5, 2, 0.99, 0.2))
	require.Equal(t, 3, bandit.ActionFromProb(5, 3, 0.7, 1.0), "eps=1 is fully greedy")
}

func TestConfigValidate(t *testing.T) {
	cases := []bandit.Config{
		{States: 0, Actions: 1, Eps: 0.5, LearningRate: 0.5},
		{States: 1, Actions: 0, Eps: 0.5, LearningRate: 0.5},
		{States: 1, Actions: 1, Eps: 1.5, LearningRate: 0.5},
		{States: 1, Actions: 1, Eps: 0.5, LearningRate: 0},
		{States: 1, Actions: 1, Eps: 0.5, LearningRate: 0.5, Discount: -1},
	}
	for _, c := range cases {
		_, err := bandit.New(c)
		require.True(t, errors.Is(err, bandit.ErrInvalidConfig), "%+v", c)
	}
}

func TestUpdateQL(t *testing.T) {
	b := newAgent(t, 2, 3)

	b.UpdateQL(0, 1, 1, 10)
	require.InDelta(t, 5.0, b.Q(0, 1), 1e-9)
	require.Equal(t, 1, b.Best(0))

	// следующее состояние 0: лучшее действие 1 с Q=5
	b.UpdateQL(1, 2, 0, 4)
	require.InDelta(t, 0.5*4+0.5*0.5*5, b.Q(1, 2), 1e-9)
	require.Equal(t, 2, b.Best(1))
	require.NoError(t, b.Validate())
}

func TestUpdateSARSA(t *testing.T) {
	b := newAgent(t, 2, 2)
	b.UpdateQL(1, 0, 1, 8) // Q[1][0] = 4
	b.UpdateQL(1, 1, 1, 2) // Q[1][1] = 0.5*2 + 0.5*0.5*4 = 2

	b.UpdateSARSA(0, 0, 1, 1, 0)
	require.InDelta(t, 0.5*0.5*2, b.Q(0, 0), 1e-9)
}

func TestBestRescanOnDecrease(t *testing.T) {
	b := newAgent(t, 1, 3)
	b.UpdateQL(0, 0, 0, 4) // Q=2
	b.UpdateQL(0, 2, 0, 6) // Q = 0.5*(6+0.5*2)=3.5
	require.Equal(t, 2, b.Best(0))

	b.UpdateQL(0, 2, 0, -20)
	require.Equal(t, 0, b.Best(0), "previous best dropped, argmax is rescanned")
	require.NoError(t, b.Validate())
}

func TestSelect_SingleActionDoesNotDraw(t *testing.T) {
	b := newAgent(t, 3, 1)
	rng := rand.New(rand.NewSource(1))
	ref := rand.New(rand.NewSource(1))

	for i := 0; i < 10; i++ {
		require.Equal(t, 0, b.Select(i%3, rng))
	}
	require.Equal(t, ref.Int63(), rng.Int63())
}

func TestSelect_Distribution(t *testing.T) {
	b := newAgent(t, 1, 4)
	b.UpdateQL(0, 3, 0, 1)
	rng := rand.New(rand.NewSource(5))

	counts := make([]int, 4)
	const n = 20000
	for i := 0; i < n; i++ {
		counts[b.Select(0, rng)]++
	}
	// лучшее действие: 0.2 + 0.8/4 = 0.4, остальные по 0.2
	require.InDelta(t, 0.4, float64(counts[3])/n, 0.02)
	for a := 0; a < 3; a++ {
		require.InDelta(t, 0.2, float64(counts[a])/n, 0.02)
	}
}

func TestValidate_RandomUpdates(t *testing.T) {
	b := newAgent(t, 4, 5)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 2000; i++ {
		s := rng.Intn(4)
		a := b.Select(s, rng)
		b.UpdateQL(s, a, rng.Intn(4), rng.NormFloat64())
		require.NoError(t, b.Validate())
	}
}

func TestSet(t *testing.T) {
	s, err := bandit.NewSet([]float64{0.0, 0.4, 0.8}, 2, 0.5, 0.5, 0.5)
	require.NoError(t, err)
	require.Equal(t, 0.0, s.BestValue(0))

	s.Reward(0, 2, 1, 3)
	require.Equal(t, 0.8, s.BestValue(0))

	s.Reward(0, -1, 1, 100)
	require.InDelta(t, 1.5, s.Agent().Q(0, 2), 1e-9, "unchosen action is not rewarded")

	rng := rand.New(rand.NewSource(2))
	a, v := s.Choose(1, rng)
	require.Equal(t, s.Values()[a], v)

	_, err = bandit.NewSet([]int{}, 2, 0.5, 0.5, 0.5)
	require.ErrorIs(t, err, bandit.ErrInvalidConfig)

	single, err := bandit.NewSet([]int{7}, 2, 0.5, 0.5, 0.5)
	require.NoError(t, err)
	single.Reward(0, 0, 0, 10)
	require.Equal(t, 0.0, single.Agent().Q(0, 0))
}

func TestSet_RewardSARSA(t *testing.T) {
	s, err := bandit.NewSet([]float64{0.1, 0.2}, 2, 0.2, 0.5, 0.5)
	require.NoError(t, err)

	s.Reward(1, 0, 1, 8) // Q[1][0] = 4, лучшее в 1 - действие 0
	s.Reward(1, 1, 1, 2) // Q[1][1] = 0.5*2 + 0.5*0.5*4 = 2
	s.RewardSARSA(0, 1, 1, 1, 0)
	require.InDelta(t, 0.5*0.5*2, s.Agent().Q(0, 1), 1e-9, "uses the taken next action, not the best one")
	require.Equal(t, 0.2, s.BestValue(0))

	s.RewardSARSA(0, -1, 1, 0, 100)
	require.InDelta(t, 0.5, s.Agent().Q(0, 1), 1e-9)
	require.Zero(t, s.Agent().Q(0, 0))
	require.NoError(t, s.Agent().Validate())
}
