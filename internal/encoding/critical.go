package encoding

import (
	"math/rand"
	"sort"
)

// CriticalJob - работа на критическом пути и её критические операции (по возрастанию).
type CriticalJob struct {
	Job int
	Ops []int
}

// LastJobs возвращает работы, завершающиеся ровно в makespan, по возрастанию индекса.
func (e *Encoding) LastJobs() []int {
	var last []int
	best := -1
	for j, ep := range e.entryPoints {
		end := ep + e.inst.JobDuration(j)
		switch {
		case end > best:
			best = end
			last = append(last[:0], j)
		case end == best:
			last = append(last, j)
		}
	}
	return last
}

type opEnd struct {
	end int
	op  int
}

// CriticalPath строит критический путь по зафиксированному расписанию: начиная с последних
// работ, некритическая работа становится критической, если конец её операции совпадает
// со стартом операции текущей критической работы на том же станке.
// Решение должно быть декодировано с фиксацией станков.
func (e *Encoding) CriticalPath() []CriticalJob {
	e.mustBeScheduled()

	inst := e.inst
	nJobs := inst.NumJobs()
	nMachines := inst.NumMachines()

	ops := make([]map[int]struct{}, nJobs)
	mark := func(job, op int) {
		if ops[job] == nil {
			ops[job] = make(map[int]struct{})
		}
		ops[job][op] = struct{}{}
	}

	current := make([]bool, nJobs)
	uncritical := make([]bool, nJobs)
	for j := range uncritical {
		uncritical[j] = true
	}
	for _, j := range e.LastJobs() {
		current[j] = true
		uncritical[j] = false
		if ops[j] == nil {
			ops[j] = make(map[int]struct{})
		}
	}

	// концы операций некритических работ по станкам
	ends := make([][][]opEnd, nJobs)
	for j := 0; j < nJobs; j++ {
		if !uncritical[j] {
			continue
		}
		ends[j] = make([][]opEnd, nMachines)
		for op, m := range e.machines[j] {
			end := e.entryPoints[j] + inst.Delay(j, op) + inst.Duration(j, op)
			ends[j][m] = append(ends[j][m], opEnd{end: end, op: op})
		}
	}

	// старты операций критических работ: станок -> старт -> операция
	starts := make([][]map[int]int, nJobs)
	addStarts := func(job int) {
		if starts[job] != nil {
			return
		}
		starts[job] = make([]map[int]int, nMachines)
		for op, m := range e.machines[job] {
			if starts[job][m] == nil {
				starts[job][m] = make(map[int]int)
			}
			starts[job][m][e.entryPoints[job]+inst.Delay(job, op)] = op
		}
	}

	next := make([]bool, nJobs)
	for {
		for j := range current {
			if current[j] {
				addStarts(j)
			}
		}

		found := false
		for u := 0; u < nJobs; u++ {
			if !uncritical[u] {
				continue
			}
			for m, list := range ends[u] {
				for _, oe := range list {
					for c := 0; c < nJobs; c++ {
						if !current[c] || starts[c][m] == nil {
							continue
						}
						if op, ok := starts[c][m][oe.end]; ok {
							mark(c, op)
							mark(u, oe.op)
							next[u] = true
							found = true
						}
					}
				}
			}
		}
		if !found {
			break
		}

		for j := range next {
			if next[j] {
				uncritical[j] = false
			}
			current[j] = next[j]
			next[j] = false
		}
	}

	// последние найденные работы начинают путь с первой операции
	for j := range current {
		if current[j] || (ops[j] != nil && len(ops[j]) == 0) {
			mark(j, 0)
		}
	}

	path := make([]CriticalJob, 0)
	for j, set := range ops {
		if set == nil {
			continue
		}
		cj := CriticalJob{Job: j, Ops: make([]int, 0, len(set))}
		for op := range set {
			cj.Ops = append(cj.Ops, op)
		}
		sort.Ints(cj.Ops)
		path = append(path, cj)
	}
	return path
}

// MachineLoads суммирует длительности назначенных операций по станкам.
func (e *Encoding) MachineLoads() []int {
	loads := make([]int, e.inst.NumMachines())
	for j := range e.machines {
		for op, m := range e.machines[j] {
			if m != FreeMachine {
				loads[m] += e.inst.Duration(j, op)
			}
		}
	}
	return loads
}

// RebalanceResources переназначает станки гибких операций работы с вероятностью,
// обратной загрузке станка: p(m) = (L - l_m) / ((k-1)·L), где L - суммарная загрузка
// k допустимых станков. При L = 0 выбор равновероятный.
func (e *Encoding) RebalanceResources(job int, rng *rand.Rand) {
	loads := e.MachineLoads()
	for op := range e.machines[job] {
		if !e.inst.IsFlexible(job, op) {
			continue
		}
		set := e.inst.Machines(job, op)
		total := 0
		for _, m := range set {
			total += loads[m]
		}
		if total == 0 {
			e.machines[job][op] = set[rng.Intn(len(set))]
			continue
		}

		k := float64(len(set) - 1)
		p := rng.Float64()
		chosen := set[len(set)-1]
		cum := 0.0
		for _, m := range set {
			cum += float64(total-loads[m]) / (k * float64(total))
			if p < cum {
				chosen = m
				break
			}
		}
		e.machines[job][op] = chosen
	}
	e.Invalidate()
}

// ReorderForReinsertion ставит работу в начало порядка, остальные сортирует по старту.
func (e *Encoding) ReorderForReinsertion(job int) {
	for i, j := range e.order {
		if j == job {
			e.order[0], e.order[i] = e.order[i], e.order[0]
			break
		}
	}
	rest := e.order[1:]
	sort.SliceStable(rest, func(a, b int) bool {
		return e.entryPoints[rest[a]] < e.entryPoints[rest[b]]
	})
}

// ReentryPoints - кандидатные старты для повторной вставки работы: 0 и все
// положительные значения end - delay, где end - конец операции другой работы на станке,
// занятом критической операцией с задержкой delay.
func (e *Encoding) ReentryPoints(cj CriticalJob) []int {
	inst := e.inst
	delays := make(map[int][]int)
	for _, op := range cj.Ops {
		m := e.machines[cj.Job][op]
		delays[m] = append(delays[m], inst.Delay(cj.Job, op))
	}

	seen := map[int]struct{}{0: {}}
	points := []int{0}
	for j := range e.machines {
		if j == cj.Job {
			continue
		}
		for op, m := range e.machines[j] {
			ds, ok := delays[m]
			if !ok {
				continue
			}
			end := e.entryPoints[j] + inst.Delay(j, op) + inst.Duration(j, op)
			for _, d := range ds {
				rp := end - d
				if rp <= 0 {
					continue
				}
				if _, dup := seen[rp]; !dup {
					seen[rp] = struct{}{}
					points = append(points, rp)
				}
			}
		}
	}
	sort.Ints(points)
	return points
}

// Neighbors строит соседей по критическому пути: случайная критическая работа
// перебалансируется по станкам, переносится в начало порядка и для каждой точки
// повторной вставки получает фиксированный старт. Исходное решение не меняется.
func (e *Encoding) Neighbors(rng *rand.Rand) []*Encoding {
	path := e.CriticalPath()
	cj := path[rng.Intn(len(path))]

	base := e.Clone()
	base.RebalanceResources(cj.Job, rng)
	points := base.ReentryPoints(cj)
	base.ReorderForReinsertion(cj.Job)

	out := make([]*Encoding, len(points))
	for i, rp := range points {
		n := base.Clone()
		n.ImposeFirstJobStart(rp)
		out[i] = n
	}
	return out
}

func (e *Encoding) mustBeScheduled() {
	if !e.IsDecoded() {
		panic("encoding: critical path requires a decoded encoding")
	}
	if !e.IsFullyImposed() {
		panic("encoding: critical path requires committed machine choices")
	}
}
