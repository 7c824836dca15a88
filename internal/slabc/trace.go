package slabc

// Policy - лучшие значения параметров операторов в одном состоянии.
type Policy struct {
	Pmpi       float64
	Nrp        int
	Pswap      float64
	SwapPhyb   float64
	SwitchPhyb float64
}

// Trace хранит по итерациям лучший makespan, makespan всех источников
// и политику агентов по каждому состоянию.
type Trace struct {
	best     []int
	sources  [][]int
	policies [][]Policy
}

func newTrace(capacity int) *Trace {
	return &Trace{
		best:     make([]int, 0, capacity),
		sources:  make([][]int, 0, capacity),
		policies: make([][]Policy, 0, capacity),
	}
}

func (t *Trace) record(c *colony) {
	t.best = append(t.best, c.best.Makespan())

	ms := make([]int, len(c.sources))
	for i, s := range c.sources {
		ms[i] = s.Makespan()
	}
	t.sources = append(t.sources, ms)

	ps := make([]Policy, c.cfg.states())
	for s := range ps {
		ps[s] = c.policy(s)
	}
	t.policies = append(t.policies, ps)
}

// Len - число записанных итераций.
func (t *Trace) Len() int { return len(t.best) }

func (t *Trace) Best(iter int) int { return t.best[iter] }

func (t *Trace) Sources(iter int) []int { return t.sources[iter] }

func (t *Trace) Policies(iter int) []Policy { return t.policies[iter] }
