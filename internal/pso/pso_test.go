package pso_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"flexShop/internal/fjsp"
	"flexShop/internal/pso"
)

func testInstance(seed int64) *fjsp.Instance {
	return fjsp.RandomInstance(fjsp.DefaultGeneratorConfig(7, 4), rand.New(rand.NewSource(seed)))
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, pso.DefaultConfig().Validate())

	unbounded := pso.DefaultConfig()
	unbounded.PosMin, unbounded.PosMax = 0, 0
	require.NoError(t, unbounded.Validate())

	cases := map[string]func(*pso.Config){
		"no iterations":   func(c *pso.Config) { c.Iterations, c.IterationsPerJob = 0, 0 },
		"no particles":    func(c *pso.Config) { c.Particles = 0 },
		"negative w":      func(c *pso.Config) { c.W = -0.1 },
		"negative c1":     func(c *pso.Config) { c.C1 = -1 },
		"inverted bounds": func(c *pso.Config) { c.PosMin, c.PosMax = 1, 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := pso.DefaultConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), pso.ErrInvalidConfig)
		})
	}
}

func TestNew_RejectsNilRng(t *testing.T) {
	_, err := pso.New(pso.DefaultConfig(), nil)
	require.Error(t, err)
}

func TestSolve_FeasibleAndCounted(t *testing.T) {
	inst := testInstance(3)
	cfg := pso.DefaultConfig()
	cfg.Iterations = 6
	cfg.Particles = 5

	s, err := pso.New(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), inst)
	require.NoError(t, err)

	require.Equal(t, 6, res.Iterations)
	// начальные позиции, итерации и финальное декодирование
	require.Equal(t, 5+6*5+1, res.Evaluations)

	enc, err := res.Encoding(inst)
	require.NoError(t, err)
	require.NoError(t, enc.ValidateSchedule())
	require.Equal(t, res.Makespan, enc.Makespan())
}

func TestSolve_UnboundedPositions(t *testing.T) {
	inst := testInstance(4)
	cfg := pso.DefaultConfig()
	cfg.Iterations = 4
	cfg.Particles = 3
	cfg.PosMin, cfg.PosMax = 0, 0
	cfg.VMax = 0

	s, err := pso.New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), inst)
	require.NoError(t, err)

	enc, err := res.Encoding(inst)
	require.NoError(t, err)
	require.NoError(t, enc.ValidateSchedule())
}

func TestSolve_ReproducibleBySeed(t *testing.T) {
	inst := testInstance(9)
	cfg := pso.DefaultConfig()
	cfg.Iterations = 4

	run := func() (int, []int) {
		s, err := pso.New(cfg, rand.New(rand.NewSource(11)))
		require.NoError(t, err)
		res, err := s.Solve(context.Background(), inst)
		require.NoError(t, err)
		return res.Makespan, res.Permutation
	}
	m1, p1 := run()
	m2, p2 := run()
	require.Equal(t, m1, m2)
	require.Equal(t, p1, p2)
}

func TestSolve_CancelledContext(t *testing.T) {
	inst := testInstance(2)
	s, err := pso.New(pso.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Solve(ctx, inst)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "context", res.Meta["stopped"])

	enc, err := res.Encoding(inst)
	require.NoError(t, err)
	require.NoError(t, enc.ValidateSchedule())
}
