package opt_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
	"flexShop/internal/opt"
)

func decoded(t *testing.T) (*fjsp.Instance, *encoding.Encoding) {
	t.Helper()
	inst := fjsp.RandomInstance(fjsp.DefaultGeneratorConfig(5, 3), rand.New(rand.NewSource(1)))
	d, err := decoder.New(inst)
	require.NoError(t, err)
	enc := encoding.New(inst, rand.New(rand.NewSource(2)), true, 0.5)
	d.Decode(enc, true)
	return inst, enc
}

func TestFromEncoding_RoundTrip(t *testing.T) {
	inst, enc := decoded(t)
	res := opt.FromEncoding(enc, 7, 3, map[string]any{"k": 1})
	require.Equal(t, enc.Makespan(), res.Makespan)
	require.Equal(t, 7, res.Evaluations)
	require.Equal(t, 3, res.Iterations)

	back, err := res.Encoding(inst)
	require.NoError(t, err)
	require.NoError(t, back.ValidateSchedule())
	require.Equal(t, enc.Order(), back.Order())
	require.Equal(t, enc.EntryPoints(), back.EntryPoints())
	require.Equal(t, enc.Makespan(), back.Makespan())

	// результат не разделяет память с решением
	res.EntryPoints[0]++
	res.Machines[0][0] = -5
	require.NotEqual(t, res.EntryPoints[0], enc.EntryPoint(0))
	require.NotEqual(t, -5, enc.Machine(0, 0))
}

func TestResult_EncodingRejects(t *testing.T) {
	inst, enc := decoded(t)

	cases := map[string]func(*opt.Result){
		"bad permutation":    func(r *opt.Result) { r.Permutation[0] = r.Permutation[1] },
		"short machines":     func(r *opt.Result) { r.Machines = r.Machines[:1] },
		"short op row":       func(r *opt.Result) { r.Machines[0] = nil },
		"ineligible machine": func(r *opt.Result) { r.Machines[0][0] = inst.NumMachines() },
		"short entry points": func(r *opt.Result) { r.EntryPoints = r.EntryPoints[:2] },
		"negative entry":     func(r *opt.Result) { r.EntryPoints[1] = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			res := opt.FromEncoding(enc, 0, 0, nil)
			mutate(&res)
			_, err := res.Encoding(inst)
			require.Error(t, err)
		})
	}
}
