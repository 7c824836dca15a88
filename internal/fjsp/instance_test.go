package fjsp_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"flexShop/internal/fjsp"
)

func sampleJobs() [][]fjsp.Operation {
	return [][]fjsp.Operation{
		{
			{Duration: 5, Machines: []int{0}},
			{Duration: 4, Machines: []int{2, 0, 0}},
			{Duration: 7, Machines: []int{0}},
			{Duration: 9, Machines: []int{0, 1}},
		},
		{
			{Duration: 3, Machines: []int{1}},
			{Duration: 2, Machines: []int{2}},
		},
	}
}

func TestNewInstance_Derived(t *testing.T) {
	inst, err := fjsp.NewInstance(sampleJobs())
	require.NoError(t, err)
	require.NoError(t, inst.Validate())

	require.Equal(t, 2, inst.NumJobs())
	require.Equal(t, 3, inst.NumMachines())
	require.Equal(t, 6, inst.TotalOps())

	// задержки - префиксные суммы длительностей
	for op, want := range []int{0, 5, 9, 16} {
		require.Equal(t, want, inst.Delay(0, op))
	}
	require.Equal(t, 25, inst.JobDuration(0))
	require.Equal(t, 5, inst.JobDuration(1))
	require.Equal(t, 30, inst.TotalDuration())
	require.Equal(t, 25, inst.LowerBound(), "longest job dominates the load bound of 10")

	require.Equal(t, []int{0, 2}, inst.Machines(0, 1), "machine set is sorted and deduplicated")
	require.True(t, inst.HasMachine(0, 1, 2))
	require.False(t, inst.HasMachine(0, 1, 1))
	require.Equal(t, 2, inst.NthMachine(0, 1, 1))

	require.InDelta(t, 1.5, inst.JobAvgMachines(0), 1e-9)
	require.InDelta(t, 1.0, inst.JobAvgMachines(1), 1e-9)

	require.Equal(t, []fjsp.OpRef{{Job: 0, Op: 1}, {Job: 0, Op: 3}}, inst.FlexibleOps())
	require.True(t, inst.IsFlexible(0, 3))
	require.False(t, inst.IsFlexible(1, 0))
}

func TestNewInstance_Rejects(t *testing.T) {
	_, err := fjsp.NewInstance(nil)
	require.Error(t, err)

	_, err = fjsp.NewInstance([][]fjsp.Operation{{}})
	require.Error(t, err)

	_, err = fjsp.NewInstance([][]fjsp.Operation{{{Duration: 0, Machines: []int{0}}}})
	require.Error(t, err)

	_, err = fjsp.NewInstance([][]fjsp.Operation{{{Duration: 1}}})
	require.Error(t, err)

	_, err = fjsp.NewInstance([][]fjsp.Operation{{{Duration: 1, Machines: []int{-1}}}})
	require.Error(t, err)
}

func TestNewInstance_CopiesInput(t *testing.T) {
	jobs := sampleJobs()
	inst, err := fjsp.NewInstance(jobs)
	require.NoError(t, err)

	jobs[0][1].Machines[0] = 1
	require.Equal(t, []int{0, 2}, inst.Machines(0, 1))
}

func TestRandomMachine_Eligible(t *testing.T) {
	inst, err := fjsp.NewInstance(sampleJobs())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		m := inst.RandomMachine(0, 1, rng)
		require.True(t, inst.HasMachine(0, 1, m))
		seen[m] = true
	}
	require.Len(t, seen, 2)
}

func TestRandomInstance(t *testing.T) {
	cfg := fjsp.DefaultGeneratorConfig(6, 4)
	require.NoError(t, cfg.Validate())

	inst := fjsp.RandomInstance(cfg, rand.New(rand.NewSource(7)))
	require.Equal(t, 6, inst.NumJobs())
	require.LessOrEqual(t, inst.NumMachines(), 4)

	for j := 0; j < inst.NumJobs(); j++ {
		require.GreaterOrEqual(t, inst.NumOps(j), cfg.MinOps)
		require.LessOrEqual(t, inst.NumOps(j), cfg.MaxOps)
		for o := 0; o < inst.NumOps(j); o++ {
			require.LessOrEqual(t, inst.NumOpMachines(j, o), cfg.MaxFlex)
			require.GreaterOrEqual(t, inst.Duration(j, o), cfg.MinTime)
			require.LessOrEqual(t, inst.Duration(j, o), cfg.MaxTime)
		}
	}

	again := fjsp.RandomInstance(cfg, rand.New(rand.NewSource(7)))
	require.Equal(t, inst.TotalDuration(), again.TotalDuration())
}

func TestValidatePermutation(t *testing.T) {
	require.NoError(t, fjsp.ValidatePermutation([]int{2, 0, 1}, 3))
	require.Error(t, fjsp.ValidatePermutation([]int{0, 1}, 3))
	require.Error(t, fjsp.ValidatePermutation([]int{0, 0, 1}, 3))
	require.Error(t, fjsp.ValidatePermutation([]int{0, 3, 1}, 3))
}
