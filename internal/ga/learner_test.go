package ga

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLearner_StateAndRewards(t *testing.T) {
	cfg := DefaultLearningConfig()
	cfg.Thresholds = []float64{0.5, 1.0}
	cfg.MutationRates = []float64{0.1, 0.2}
	first := popStats{sum: 100, max: 20, spread: 10}
	l, err := newLearner(cfg, first)
	require.NoError(t, err)

	require.Equal(t, 0, l.stateOf(0.5))
	require.Equal(t, 1, l.stateOf(0.7))
	require.Equal(t, 2, l.stateOf(1.2))

	// веса в сумме дают 1, поэтому первое поколение попадает в порог 1.0
	require.InDelta(t, 1.0, l.score(first), 1e-9)
	require.InDelta(t, 0.35*0.5+0.35*0.5+0.3*0.5, l.score(popStats{sum: 50, max: 10, spread: 5}), 1e-9)
	require.InDelta(t, 1.0, relative(3, 0), 1e-9, "zero first spread")

	l.observe(popStats{sum: 100, max: 20}, popStats{sum: 90, max: 22})
	require.InDelta(t, 0.1, l.rewardCross, 1e-9)
	require.InDelta(t, -0.1, l.rewardMut, 1e-9)
}

func TestLearner_UpdatesWithSARSAThenQLearning(t *testing.T) {
	cfg := DefaultLearningConfig()
	cfg.Thresholds = []float64{0.5, 1.0}
	cfg.MutationRates = []float64{0.1, 0.2}
	require.Equal(t, 3, cfg.SARSAGenerations())

	first := popStats{sum: 100, max: 20, spread: 10}
	l, err := newLearner(cfg, first)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(9))

	stats := first
	for gen := 0; gen < 6; gen++ {
		l.choose(stats, rng)
		next := popStats{sum: stats.sum - 5, max: stats.max - 1, spread: stats.spread}
		l.observe(stats, next)
		l.update(gen)
		stats = next
	}

	// поколение 0 без предыдущего действия, 1..2 - SARSA, 3..5 - Q-learning
	require.Equal(t, 2, l.sarsaUpdates)
	require.Equal(t, 3, l.qlUpdates)
	require.NoError(t, l.pc.Agent().Validate())
	require.NoError(t, l.pm.Agent().Validate())
}
