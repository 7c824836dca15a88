package fjsp

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Operation - одна операция работы: длительность и множество допустимых станков.
type Operation struct {
	Duration int
	Machines []int
}

// OpRef адресует операцию внутри экземпляра.
type OpRef struct {
	Job int
	Op  int
}

// Instance - неизменяемый экземпляр задачи FJSP.
// После NewInstance экземпляр только читается и может разделяться между горутинами.
type Instance struct {
	machines int
	totalOps int

	durations [][]int
	delays    [][]int
	eligible  [][][]int

	jobDurations   []int
	jobAvgMachines []float64
	flexibleOps    []OpRef
}

// NewInstance копирует описание работ, сортирует множества станков и
// предвычисляет задержки операций, длительности работ и среднюю гибкость.
func NewInstance(jobs [][]Operation) (*Instance, error) {
	if len(jobs) == 0 {
		return nil, errors.New("jobs must be > 0 (got 0)")
	}

	inst := &Instance{
		durations: make([][]int, len(jobs)),
		delays:    make([][]int, len(jobs)),
		eligible:  make([][][]int, len(jobs)),
	}

	for j, ops := range jobs {
		if len(ops) == 0 {
			return nil, fmt.Errorf("job %d: operations must be > 0", j)
		}
		inst.durations[j] = make([]int, len(ops))
		inst.eligible[j] = make([][]int, len(ops))
		for o, op := range ops {
			if op.Duration <= 0 {
				return nil, fmt.Errorf("job %d op %d: duration must be > 0 (got %d)", j, o, op.Duration)
			}
			if len(op.Machines) == 0 {
				return nil, fmt.Errorf("job %d op %d: eligible machine set is empty", j, o)
			}
			set, err := machineSet(op.Machines)
			if err != nil {
				return nil, fmt.Errorf("job %d op %d: %w", j, o, err)
			}
			inst.durations[j][o] = op.Duration
			inst.eligible[j][o] = set
			if last := set[len(set)-1]; last >= inst.machines {
				inst.machines = last + 1
			}
		}
	}

	inst.buildDelays()
	inst.buildJobAggregates()
	return inst, nil
}

// machineSet возвращает отсортированную копию без повторов.
func machineSet(machines []int) ([]int, error) {
	set := make([]int, len(machines))
	copy(set, machines)
	sort.Ints(set)
	out := set[:0]
	for i, m := range set {
		if m < 0 {
			return nil, fmt.Errorf("machine index must be >= 0 (got %d)", m)
		}
		if i > 0 && set[i-1] == m {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// buildDelays: задержка операции - сумма длительностей предыдущих операций той же работы.
func (inst *Instance) buildDelays() {
	for j, durs := range inst.durations {
		inst.delays[j] = make([]int, len(durs))
		sum := 0
		for o, d := range durs {
			inst.delays[j][o] = sum
			sum += d
		}
	}
}

func (inst *Instance) buildJobAggregates() {
	n := len(inst.durations)
	inst.jobDurations = make([]int, n)
	inst.jobAvgMachines = make([]float64, n)
	inst.totalOps = 0
	inst.flexibleOps = inst.flexibleOps[:0]

	for j := 0; j < n; j++ {
		last := len(inst.durations[j]) - 1
		inst.jobDurations[j] = inst.delays[j][last] + inst.durations[j][last]

		avg := 0.0
		for o := range inst.durations[j] {
			avg += float64(len(inst.eligible[j][o]))
			if len(inst.eligible[j][o]) > 1 {
				inst.flexibleOps = append(inst.flexibleOps, OpRef{Job: j, Op: o})
			}
		}
		inst.jobAvgMachines[j] = avg / float64(len(inst.durations[j]))
		inst.totalOps += len(inst.durations[j])
	}
}

// Validate проверяет, что экземпляр построен через NewInstance.
func (inst *Instance) Validate() error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	if len(inst.durations) == 0 || inst.machines <= 0 {
		return errors.New("instance is empty; use NewInstance")
	}
	return nil
}

func (inst *Instance) NumJobs() int     { return len(inst.durations) }
func (inst *Instance) NumMachines() int { return inst.machines }
func (inst *Instance) NumOps(job int) int {
	return len(inst.durations[job])
}

// TotalOps - число операций по всем работам.
func (inst *Instance) TotalOps() int { return inst.totalOps }

func (inst *Instance) Duration(job, op int) int { return inst.durations[job][op] }
func (inst *Instance) Delay(job, op int) int    { return inst.delays[job][op] }

// Machines возвращает отсортированное множество допустимых станков. Срез нельзя изменять.
func (inst *Instance) Machines(job, op int) []int { return inst.eligible[job][op] }

func (inst *Instance) NumOpMachines(job, op int) int { return len(inst.eligible[job][op]) }

// NthMachine - n-й станок в порядке перечисления допустимого множества.
func (inst *Instance) NthMachine(job, op, n int) int { return inst.eligible[job][op][n] }

// HasMachine проверяет принадлежность станка допустимому множеству операции.
func (inst *Instance) HasMachine(job, op, machine int) bool {
	set := inst.eligible[job][op]
	i := sort.SearchInts(set, machine)
	return i < len(set) && set[i] == machine
}

// IsFlexible - у операции больше одного допустимого станка.
func (inst *Instance) IsFlexible(job, op int) bool { return len(inst.eligible[job][op]) > 1 }

// FlexibleOps перечисляет гибкие операции в порядке (работа, операция).
func (inst *Instance) FlexibleOps() []OpRef { return inst.flexibleOps }

func (inst *Instance) JobDuration(job int) int { return inst.jobDurations[job] }

// JobAvgMachines - среднее число допустимых станков на операцию работы.
func (inst *Instance) JobAvgMachines(job int) float64 { return inst.jobAvgMachines[job] }

// TotalDuration - сумма длительностей всех операций.
func (inst *Instance) TotalDuration() int {
	total := 0
	for _, d := range inst.jobDurations {
		total += d
	}
	return total
}

// LowerBound - нижняя оценка makespan: самая длинная работа либо
// суммарная нагрузка, равномерно разложенная по станкам.
func (inst *Instance) LowerBound() int {
	lb := (inst.TotalDuration() + inst.machines - 1) / inst.machines
	for _, d := range inst.jobDurations {
		lb = max(lb, d)
	}
	return lb
}

// RandomMachine выбирает равновероятно один из допустимых станков операции.
func (inst *Instance) RandomMachine(job, op int, rng *rand.Rand) int {
	set := inst.eligible[job][op]
	if len(set) == 1 {
		return set[0]
	}
	return set[rng.Intn(len(set))]
}
