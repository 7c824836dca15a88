package encoding

import (
	"fmt"
	"math/rand"
	"sort"

	"flexShop/internal/fjsp"
)

// Правило диспетчеризации для построения начального порядка работ
type DispatchRule string

const (
	// LNO - больше операций раньше
	DispatchLNO DispatchRule = "lno"
	// LJD - более длинные работы раньше
	DispatchLJD DispatchRule = "ljd"
	// LRA - работы с меньшим средним числом станков раньше
	DispatchLRA DispatchRule = "lra"
)

// DispatchRules перечисляет все правила в фиксированном порядке.
var DispatchRules = []DispatchRule{DispatchLNO, DispatchLJD, DispatchLRA}

// Dispatch переупорядочивает работы по правилу; равные по ключу работы сохраняют относительный порядок.
func (e *Encoding) Dispatch(rule DispatchRule) {
	inst := e.inst
	var less func(a, b int) bool
	switch rule {
	case DispatchLNO:
		less = func(a, b int) bool { return inst.NumOps(a) > inst.NumOps(b) }
	case DispatchLJD:
		less = func(a, b int) bool { return inst.JobDuration(a) > inst.JobDuration(b) }
	case DispatchLRA:
		less = func(a, b int) bool { return inst.JobAvgMachines(a) < inst.JobAvgMachines(b) }
	default:
		panic(fmt.Sprintf("encoding: unknown dispatch rule %q", rule))
	}
	sort.SliceStable(e.order, func(i, k int) bool { return less(e.order[i], e.order[k]) })
	e.Invalidate()
}

func (e *Encoding) randomFlexibleOp(rng *rand.Rand) (fjsp.OpRef, bool) {
	flex := e.inst.FlexibleOps()
	if len(flex) == 0 {
		return fjsp.OpRef{}, false
	}
	return flex[rng.Intn(len(flex))], true
}
