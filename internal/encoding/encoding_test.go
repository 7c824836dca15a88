package encoding_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
)

const iterations = 300

func testInstance(seed int64) *fjsp.Instance {
	cfg := fjsp.DefaultGeneratorConfig(10, 6)
	cfg.MaxFlex = 4
	return fjsp.RandomInstance(cfg, rand.New(rand.NewSource(seed)))
}

func TestNew_Legal(t *testing.T) {
	inst := testInstance(1)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < iterations; i++ {
		enc := encoding.New(inst, rng, true, 0.0)
		require.NoError(t, enc.Validate())
		require.True(t, enc.IsFullyImposed())
		require.False(t, enc.IsDecoded())
	}

	free := encoding.New(inst, rng, false, 0.0)
	for j := 0; j < inst.NumJobs(); j++ {
		require.False(t, free.IsJobImposed(j))
	}

	hyb := encoding.New(inst, rng, true, 1.0)
	require.False(t, hyb.IsFullyImposed())
}

func TestNew_Reproducible(t *testing.T) {
	inst := testInstance(2)
	a := encoding.New(inst, rand.New(rand.NewSource(9)), true, 0.3)
	b := encoding.New(inst, rand.New(rand.NewSource(9)), true, 0.3)
	require.Equal(t, a.Order(), b.Order())
	require.Equal(t, a.MachinesCopy(), b.MachinesCopy())
}

func TestResetByPermutation(t *testing.T) {
	inst := testInstance(3)
	enc := encoding.New(inst, rand.New(rand.NewSource(3)), true, 0.0)

	perm := make([]int, inst.NumJobs())
	for i := range perm {
		perm[i] = len(perm) - 1 - i
	}
	require.NoError(t, enc.ResetByPermutation(perm))
	require.Equal(t, perm, enc.Order())
	for j := 0; j < inst.NumJobs(); j++ {
		for op := 0; op < inst.NumOps(j); op++ {
			require.True(t, enc.IsFree(j, op))
		}
	}

	require.Error(t, enc.ResetByPermutation([]int{0, 0}))
	_, err := encoding.FromPermutation(inst, []int{1})
	require.Error(t, err)
}

func TestSetMachine_IneligiblePanics(t *testing.T) {
	inst, err := fjsp.NewInstance([][]fjsp.Operation{{{Duration: 1, Machines: []int{0, 2}}}})
	require.NoError(t, err)
	enc, err := encoding.FromPermutation(inst, []int{0})
	require.NoError(t, err)

	enc.SetMachine(0, 0, 2)
	require.Equal(t, 2, enc.Machine(0, 0))
	require.Panics(t, func() { enc.SetMachine(0, 0, 1) })
}

func TestCloneIsIndependent(t *testing.T) {
	inst := testInstance(4)
	rng := rand.New(rand.NewSource(4))
	enc := encoding.New(inst, rng, true, 0.0)
	c := enc.Clone()

	c.ShiftJobs(rng)
	c.SwapResource(rng)
	require.NotEqual(t, enc.Order(), c.Order())

	enc.CopyFrom(c)
	require.Equal(t, c.Order(), enc.Order())
	require.Equal(t, c.MachinesCopy(), enc.MachinesCopy())
}

func TestOperators_PreserveLegality(t *testing.T) {
	inst := testInstance(5)
	rng := rand.New(rand.NewSource(5))
	enc := encoding.New(inst, rng, true, 0.5)
	other := encoding.New(inst, rng, true, 0.5)

	for i := 0; i < iterations; i++ {
		switch i % 8 {
		case 0:
			enc.PermuteByOther(other, 1+rng.Intn(inst.NumJobs()), rng)
		case 1:
			enc.PermuteWithOther(other, rng)
		case 2:
			enc.Perturbation(2, 2, 0.5, rng)
		case 3:
			enc.ShiftJobsAndRandomizeResources(0.4, rng)
		case 4:
			enc.MutateResource(0.3, rng)
		case 5:
			enc.SwapResource(rng)
		case 6:
			enc.Permute(other, 3, 1, 1, 0.5, 0.5, rng)
		case 7:
			enc.Dispatch(encoding.DispatchRules[rng.Intn(len(encoding.DispatchRules))])
		}
		require.NoError(t, enc.Validate())
		require.NoError(t, other.Validate())
		require.False(t, enc.IsDecoded())
	}
}

func TestPermuteByOther_TakesDonorJobsAndMachines(t *testing.T) {
	inst := testInstance(6)
	rng := rand.New(rand.NewSource(6))
	recv := encoding.New(inst, rng, true, 0.0)
	donor := encoding.New(inst, rng, true, 0.0)
	before := recv.Permutation()
	beforeMachines := recv.MachinesCopy()

	recv.PermuteByOther(donor, inst.NumJobs()/2, rng)
	require.NoError(t, recv.Validate())

	// позиции, не совпадающие с донором, заполнены собственными работами в исходном порядке
	var own []int
	for pos, job := range recv.Order() {
		if donor.Order()[pos] != job {
			own = append(own, job)
		}
	}
	// станки работы либо прежние, либо взяты у донора целиком
	for j := 0; j < inst.NumJobs(); j++ {
		if !equalInts(beforeMachines[j], recv.JobMachines(j)) {
			require.Equal(t, donor.JobMachines(j), recv.JobMachines(j))
		}
	}
	k := 0
	for _, job := range before {
		if k < len(own) && own[k] == job {
			k++
		}
	}
	require.Equal(t, len(own), k, "own jobs keep their relative order")
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPermuteWithOther_KeptPositions(t *testing.T) {
	inst := testInstance(7)
	rng := rand.New(rand.NewSource(7))
	p1 := encoding.New(inst, rng, true, 0.0)
	p2 := encoding.New(inst, rng, true, 0.0)

	for i := 0; i < iterations; i++ {
		p1.PermuteWithOther(p2, rng)
		require.NoError(t, p1.ValidateSequencing())
		require.NoError(t, p2.ValidateSequencing())
	}
}

func TestShiftJobs_ReturnsSmallerPosition(t *testing.T) {
	inst := testInstance(8)
	rng := rand.New(rand.NewSource(8))
	enc := encoding.New(inst, rng, true, 0.0)

	for i := 0; i < iterations; i++ {
		before := enc.Permutation()
		first := enc.ShiftJobs(rng)

		var diff []int
		for pos := range before {
			if before[pos] != enc.Order()[pos] {
				diff = append(diff, pos)
			}
		}
		require.Len(t, diff, 2)
		require.Equal(t, diff[0], first)
	}
}

func TestMutateResource(t *testing.T) {
	inst := testInstance(9)
	rng := rand.New(rand.NewSource(9))

	enc := encoding.New(inst, rng, true, 0.0)
	for i := 0; i < iterations; i++ {
		enc.MutateResource(0.0, rng)
		require.True(t, enc.IsFullyImposed())
	}

	for i := 0; i < iterations; i++ {
		flex := encoding.New(inst, rng, true, 0.0)
		flex.MutateResource(1.0, rng)
		require.False(t, flex.IsFullyImposed())
	}
}

func TestMutateResource_NoFlexibleOpsIsNoop(t *testing.T) {
	inst, err := fjsp.NewInstance([][]fjsp.Operation{
		{{Duration: 1, Machines: []int{0}}},
		{{Duration: 2, Machines: []int{1}}},
	})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	enc := encoding.New(inst, rng, true, 0.0)
	before := enc.MachinesCopy()

	enc.MutateResource(0.5, rng)
	enc.SwapResource(rng)
	require.Equal(t, before, enc.MachinesCopy())
}

func TestDispatch(t *testing.T) {
	inst, err := fjsp.NewInstance([][]fjsp.Operation{
		{{Duration: 9, Machines: []int{0}}},
		{{Duration: 1, Machines: []int{0, 1}}, {Duration: 1, Machines: []int{1}}},
		{{Duration: 2, Machines: []int{0, 1}}, {Duration: 2, Machines: []int{0, 1}}, {Duration: 1, Machines: []int{0, 1}}},
	})
	require.NoError(t, err)
	enc, err := encoding.FromPermutation(inst, []int{0, 1, 2})
	require.NoError(t, err)

	enc.Dispatch(encoding.DispatchLNO)
	require.Equal(t, []int{2, 1, 0}, enc.Order())

	enc.Dispatch(encoding.DispatchLJD)
	require.Equal(t, []int{0, 2, 1}, enc.Order())

	enc.Dispatch(encoding.DispatchLRA)
	require.Equal(t, []int{0, 1, 2}, enc.Order())

	require.Panics(t, func() { enc.Dispatch("spt") })
}

func decoded(t *testing.T, inst *fjsp.Instance, perm []int) *encoding.Encoding {
	t.Helper()
	enc, err := encoding.FromPermutation(inst, perm)
	require.NoError(t, err)
	d, err := decoder.New(inst)
	require.NoError(t, err)
	d.Decode(enc, true)
	return enc
}

// 0: m0(3) -> m1(2); 1: m1(4); 2: m0(2) -> m2(1); 3: m2(1).
func chainInstance(t *testing.T) *fjsp.Instance {
	inst, err := fjsp.NewInstance([][]fjsp.Operation{
		{{Duration: 3, Machines: []int{0}}, {Duration: 2, Machines: []int{1}}},
		{{Duration: 4, Machines: []int{1}}},
		{{Duration: 2, Machines: []int{0}}, {Duration: 1, Machines: []int{2}}},
		{{Duration: 1, Machines: []int{2}}},
	})
	require.NoError(t, err)
	return inst
}

func TestCriticalPath(t *testing.T) {
	inst := chainInstance(t)
	// 0 на [0,3) m0 и [3,5) m1; 1 на [5,9) m1; 2 на [3,5) m0 и [5,6) m2; 3 на [0,1) m2
	enc := decoded(t, inst, []int{0, 1, 2, 3})
	require.Equal(t, []int{0, 5, 3, 0}, enc.EntryPoints())
	require.Equal(t, 9, enc.Makespan())
	require.Equal(t, []int{1}, enc.LastJobs())

	path := enc.CriticalPath()
	require.Equal(t, []encoding.CriticalJob{
		{Job: 0, Ops: []int{0, 1}},
		{Job: 1, Ops: []int{0}},
	}, path)
}

func TestCriticalPath_RequiresCommittedDecode(t *testing.T) {
	inst := chainInstance(t)
	enc, err := encoding.FromPermutation(inst, []int{0, 1, 2, 3})
	require.NoError(t, err)
	require.Panics(t, func() { enc.CriticalPath() })

	d, err := decoder.New(inst)
	require.NoError(t, err)
	d.Decode(enc, false)
	require.Panics(t, func() { enc.CriticalPath() })
}

func TestReentryPointsAndReorder(t *testing.T) {
	inst := chainInstance(t)
	enc := decoded(t, inst, []int{0, 1, 2, 3})

	// работа 1 занимает m1 с задержкой 0; на m1 заканчивается операция работы 0 в момент 5
	points := enc.ReentryPoints(encoding.CriticalJob{Job: 1, Ops: []int{0}})
	require.Equal(t, []int{0, 5}, points)

	enc.ReorderForReinsertion(1)
	require.Equal(t, 1, enc.Order()[0])
	require.Equal(t, []int{1, 0, 3, 2}, enc.Order(), "the rest is sorted by entry point")
}

func TestRebalanceResources_Distribution(t *testing.T) {
	// загрузки: m0 = 30, m1 = 10; вероятности выбора (40-30)/40 и (40-10)/40
	inst, err := fjsp.NewInstance([][]fjsp.Operation{
		{{Duration: 30, Machines: []int{0}}},
		{{Duration: 10, Machines: []int{1}}},
		{{Duration: 1, Machines: []int{0, 1}}},
	})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))

	counts := map[int]int{}
	const n = 4000
	for i := 0; i < n; i++ {
		enc, err := encoding.FromPermutation(inst, []int{0, 1, 2})
		require.NoError(t, err)
		enc.SetMachine(0, 0, 0)
		enc.SetMachine(1, 0, 1)
		enc.RebalanceResources(2, rng)
		counts[enc.Machine(2, 0)]++
	}
	require.InDelta(t, 0.25, float64(counts[0])/n, 0.04)
	require.InDelta(t, 0.75, float64(counts[1])/n, 0.04)
}

func TestNeighbors(t *testing.T) {
	inst := testInstance(12)
	rng := rand.New(rand.NewSource(12))
	d, err := decoder.New(inst)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		enc := encoding.New(inst, rng, true, 0.3)
		d.Decode(enc, true)
		snapshot := enc.Clone()

		neigh := enc.Neighbors(rng)
		require.NotEmpty(t, neigh)
		require.Equal(t, snapshot.Order(), enc.Order(), "source encoding is untouched")
		require.Equal(t, snapshot.MachinesCopy(), enc.MachinesCopy())

		first := neigh[0].Order()[0]
		prev := -1
		for _, n := range neigh {
			require.NoError(t, n.Validate())
			require.Equal(t, first, n.Order()[0])
			require.Greater(t, n.FirstJobImposedStart(), prev, "reentry points are strictly ascending")
			prev = n.FirstJobImposedStart()

			d.Decode(n, true)
			require.GreaterOrEqual(t, n.EntryPoint(first), prev)
			require.Equal(t, 0, n.FirstJobImposedStart())
		}
		require.Equal(t, 0, neigh[0].EntryPoint(first), "the first reentry point is zero")
	}
}

func TestGantt(t *testing.T) {
	inst := chainInstance(t)
	enc := decoded(t, inst, []int{0, 1, 2, 3})

	rows := enc.Gantt()
	require.Len(t, rows, inst.TotalOps())
	require.Equal(t, encoding.GanttRow{Job: 0, Op: 1, Start: 3, End: 5, Machine: 1}, rows[1])
	require.Equal(t, encoding.GanttRow{Job: 1, Op: 0, Start: 5, End: 9, Machine: 1}, rows[2])
}

func TestSwapAndMovePosition(t *testing.T) {
	inst := testInstance(4)
	enc, err := encoding.FromPermutation(inst, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	enc.SwapPositions(1, 8)
	require.Equal(t, []int{0, 8, 2, 3, 4, 5, 6, 7, 1, 9}, enc.Order())

	enc.MovePosition(8, 2)
	require.Equal(t, []int{0, 8, 1, 2, 3, 4, 5, 6, 7, 9}, enc.Order())

	enc.MovePosition(0, 9)
	require.Equal(t, []int{8, 1, 2, 3, 4, 5, 6, 7, 9, 0}, enc.Order())
	require.NoError(t, enc.Validate())
	require.False(t, enc.IsDecoded())
}

func TestValidateSchedule(t *testing.T) {
	inst, err := fjsp.NewInstance([][]fjsp.Operation{
		{{Duration: 3, Machines: []int{0}}},
		{{Duration: 3, Machines: []int{0}}},
	})
	require.NoError(t, err)

	enc, err := encoding.FromPermutation(inst, []int{0, 1})
	require.NoError(t, err)
	require.Error(t, enc.ValidateSchedule(), "not decoded")

	enc.SetEntryPoints([]int{0, 3})
	require.Error(t, enc.ValidateSchedule(), "machines are not imposed")

	enc.SetMachine(0, 0, 0)
	enc.SetMachine(1, 0, 0)
	enc.SetEntryPoints([]int{0, 3})
	require.NoError(t, enc.ValidateSchedule())
	require.Equal(t, 6, enc.Makespan())

	enc.SetEntryPoints([]int{0, 2})
	require.Error(t, enc.ValidateSchedule(), "overlap on machine 0")

	d, err := decoder.New(inst)
	require.NoError(t, err)
	d.Decode(enc, true)
	require.NoError(t, enc.ValidateSchedule())
}
