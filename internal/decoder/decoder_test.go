package decoder_test

import (
	"bytes"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
)

func mustInstance(t *testing.T, jobs [][]fjsp.Operation) *fjsp.Instance {
	t.Helper()
	inst, err := fjsp.NewInstance(jobs)
	require.NoError(t, err)
	return inst
}

func mustEncoding(t *testing.T, inst *fjsp.Instance, perm []int) *encoding.Encoding {
	t.Helper()
	enc, err := encoding.FromPermutation(inst, perm)
	require.NoError(t, err)
	return enc
}

func TestDecode_SingleJob(t *testing.T) {
	inst := mustInstance(t, [][]fjsp.Operation{{
		{Duration: 5, Machines: []int{0}},
		{Duration: 4, Machines: []int{0}},
		{Duration: 7, Machines: []int{0}},
		{Duration: 9, Machines: []int{0}},
	}})
	d, err := decoder.New(inst)
	require.NoError(t, err)

	enc := mustEncoding(t, inst, []int{0})
	require.Equal(t, 25, d.Decode(enc, true))
	require.Equal(t, 0, enc.EntryPoint(0))
	require.NoError(t, d.Validate())
}

// A: m0(2) -> m1(5); B: m1(2); C: m0(1) -> m1(1).
func gapInstance(t *testing.T) *fjsp.Instance {
	return mustInstance(t, [][]fjsp.Operation{
		{{Duration: 2, Machines: []int{0}}, {Duration: 5, Machines: []int{1}}},
		{{Duration: 2, Machines: []int{1}}},
		{{Duration: 1, Machines: []int{0}}, {Duration: 1, Machines: []int{1}}},
	})
}

func TestDecode_FillsGapBeforeLaterOperation(t *testing.T) {
	inst := gapInstance(t)
	d, err := decoder.New(inst)
	require.NoError(t, err)

	enc := mustEncoding(t, inst, []int{0, 1, 2})
	d.Decode(enc, true)

	require.Equal(t, 0, enc.EntryPoint(0))
	require.Equal(t, 0, enc.EntryPoint(1), "job 1 fits into the free gap of machine 1 before job 0")
}

func TestDecode_FixedPointRaisesEntryPoint(t *testing.T) {
	inst := gapInstance(t)
	d, err := decoder.New(inst)
	require.NoError(t, err)

	enc := mustEncoding(t, inst, []int{0, 1, 2})
	require.Equal(t, 8, d.Decode(enc, true))
	require.Equal(t, []int{0, 0, 6}, enc.EntryPoints())

	periods := d.Calendars()[1].Periods()
	require.Equal(t, 8, periods[len(periods)-1].Start)
	require.NoError(t, d.Validate())
}

func TestDecode_FlexibleChoosesFirstMachineReachingEntryPoint(t *testing.T) {
	inst := mustInstance(t, [][]fjsp.Operation{
		{{Duration: 3, Machines: []int{0}}},
		{{Duration: 2, Machines: []int{0, 1}}},
		{{Duration: 2, Machines: []int{0, 1, 2}}},
		{{Duration: 1, Machines: []int{0, 1, 2}}},
	})
	d, err := decoder.New(inst)
	require.NoError(t, err)

	enc := mustEncoding(t, inst, []int{0, 1, 2, 3})
	require.Equal(t, 3, d.Decode(enc, false))
	require.True(t, enc.IsFree(1, 0), "choices are not committed")
	require.Equal(t, []int{0, 0, 0, 2}, enc.EntryPoints())

	require.Equal(t, 3, d.Decode(enc, true))
	require.Equal(t, 1, enc.Machine(1, 0))
	require.Equal(t, 2, enc.Machine(2, 0))
	require.Equal(t, 1, enc.Machine(3, 0), "machines 1 and 2 both free up at 2, the first one wins")
}

func TestDecode_ImposedStartIsOneShot(t *testing.T) {
	inst := gapInstance(t)
	d, err := decoder.New(inst)
	require.NoError(t, err)

	enc := mustEncoding(t, inst, []int{1, 0, 2})
	enc.ImposeFirstJobStart(10)
	d.Decode(enc, true)
	require.Equal(t, 10, enc.EntryPoint(1))
	require.Equal(t, 0, enc.FirstJobImposedStart())

	d.Decode(enc, true)
	require.Equal(t, 0, enc.EntryPoint(1))
}

func TestDecode_ForeignEncodingPanics(t *testing.T) {
	d, err := decoder.New(gapInstance(t))
	require.NoError(t, err)

	other := gapInstance(t)
	require.Panics(t, func() { d.Decode(mustEncoding(t, other, []int{0, 1, 2}), true) })
}

func randomInstance(seed int64) *fjsp.Instance {
	cfg := fjsp.DefaultGeneratorConfig(8, 5)
	cfg.MaxFlex = 3
	return fjsp.RandomInstance(cfg, rand.New(rand.NewSource(seed)))
}

// Операции, назначенные на один станок, не пересекаются, а операции работы идут подряд.
func requireFeasible(t *testing.T, inst *fjsp.Instance, enc *encoding.Encoding) {
	t.Helper()
	require.NoError(t, enc.Validate())
	require.True(t, enc.IsFullyImposed())

	byMachine := map[int][]encoding.GanttRow{}
	makespan := 0
	for _, r := range enc.Gantt() {
		require.True(t, inst.HasMachine(r.Job, r.Op, r.Machine))
		require.GreaterOrEqual(t, r.Start, 0)
		require.Equal(t, enc.EntryPoint(r.Job)+inst.Delay(r.Job, r.Op), r.Start)
		byMachine[r.Machine] = append(byMachine[r.Machine], r)
		if r.End > makespan {
			makespan = r.End
		}
	}
	require.Equal(t, makespan, enc.Makespan())

	for _, rows := range byMachine {
		sort.Slice(rows, func(i, k int) bool { return rows[i].Start < rows[k].Start })
		for i := 1; i < len(rows); i++ {
			require.LessOrEqual(t, rows[i-1].End, rows[i].Start)
		}
	}
}

func TestDecode_RandomEncodingsAreFeasibleAndDeterministic(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		inst := randomInstance(seed)
		rng := rand.New(rand.NewSource(seed))

		d1, err := decoder.New(inst)
		require.NoError(t, err)
		d2, err := decoder.New(inst)
		require.NoError(t, err)

		for i := 0; i < 40; i++ {
			enc := encoding.New(inst, rng, true, 0.5)
			twin := enc.Clone()

			dry := d1.Decode(enc.Clone(), false)
			ms := d1.Decode(enc, true)
			require.Equal(t, dry, ms, "dry run yields the same makespan")
			require.Equal(t, ms, d2.Decode(twin, true), "independent decoders agree")
			require.NoError(t, d1.Validate())
			requireFeasible(t, inst, enc)

			// повторное декодирование с зафиксированными станками даёт то же расписание
			again := enc.Clone()
			require.Equal(t, ms, d1.Decode(again, true))
			require.Equal(t, enc.EntryPoints(), again.EntryPoints())
		}
	}
}

func TestLogCalendars(t *testing.T) {
	inst := randomInstance(3)
	d, err := decoder.New(inst)
	require.NoError(t, err)
	d.Decode(encoding.New(inst, rand.New(rand.NewSource(1)), true, 0.5), true)

	var buf bytes.Buffer
	d.LogCalendars(zerolog.New(&buf).Level(zerolog.InfoLevel))
	require.Zero(t, buf.Len(), "nothing below debug")

	d.LogCalendars(zerolog.New(&buf).Level(zerolog.DebugLevel))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, inst.NumMachines())
	require.Contains(t, lines[0], `"machine":0`)
	require.Contains(t, lines[0], `"message":"machine calendar"`)
}
