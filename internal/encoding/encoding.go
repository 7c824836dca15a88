package encoding

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"flexShop/internal/calendar"
	"flexShop/internal/fjsp"
)

// FreeMachine - станок операции выбирает декодер.
const FreeMachine = -1

// Encoding - кандидатное решение: порядок вставки работ и назначение станков операциям.
type Encoding struct {
	inst *fjsp.Instance

	order    []int
	machines [][]int

	entryPoints  []int
	makespan     int
	imposedStart int
}

// GanttRow - одна операция расписания для внешних выгрузок.
type GanttRow struct {
	Job     int
	Op      int
	Start   int
	End     int
	Machine int
}

// New строит случайное решение. Если assignMachines=false, все операции отдаются декодеру,
// иначе каждая операция с вероятностью pFreeInit остаётся свободной, а в остальных
// случаях получает случайный допустимый станок.
func New(inst *fjsp.Instance, rng *rand.Rand, assignMachines bool, pFreeInit float64) *Encoding {
	e := alloc(inst)
	e.Randomize(rng, assignMachines, pFreeInit)
	return e
}

// Randomize перезаписывает решение случайным на месте, по тем же правилам, что и New.
func (e *Encoding) Randomize(rng *rand.Rand, assignMachines bool, pFreeInit float64) {
	for j := range e.order {
		e.order[j] = j
		for op := range e.machines[j] {
			e.machines[j][op] = FreeMachine
			if assignMachines && !bernoulli(rng, pFreeInit) {
				e.machines[j][op] = e.inst.RandomMachine(j, op, rng)
			}
		}
	}
	shuffle(e.order, rng)
	e.imposedStart = 0
	e.Invalidate()
}

// FromPermutation строит решение с заданным порядком и свободными станками.
func FromPermutation(inst *fjsp.Instance, perm []int) (*Encoding, error) {
	e := alloc(inst)
	if err := e.ResetByPermutation(perm); err != nil {
		return nil, err
	}
	return e, nil
}

func alloc(inst *fjsp.Instance) *Encoding {
	n := inst.NumJobs()
	e := &Encoding{
		inst:        inst,
		order:       make([]int, n),
		machines:    make([][]int, n),
		entryPoints: make([]int, n),
		makespan:    calendar.Invalid,
	}
	for j := 0; j < n; j++ {
		e.machines[j] = make([]int, inst.NumOps(j))
	}
	for j := range e.entryPoints {
		e.entryPoints[j] = calendar.Invalid
	}
	return e
}

// Clone возвращает независимую копию.
func (e *Encoding) Clone() *Encoding {
	c := alloc(e.inst)
	c.CopyFrom(e)
	return c
}

// CopyFrom перезаписывает решение содержимым src без новых выделений памяти.
func (e *Encoding) CopyFrom(src *Encoding) {
	if e == src {
		return
	}
	if e.inst != src.inst {
		panic("encoding: copy between different instances")
	}
	copy(e.order, src.order)
	for j := range e.machines {
		copy(e.machines[j], src.machines[j])
	}
	copy(e.entryPoints, src.entryPoints)
	e.makespan = src.makespan
	e.imposedStart = src.imposedStart
}

// ResetByPermutation задаёт порядок работ и освобождает все станки.
func (e *Encoding) ResetByPermutation(perm []int) error {
	if err := fjsp.ValidatePermutation(perm, e.inst.NumJobs()); err != nil {
		return err
	}
	copy(e.order, perm)
	e.ReleaseMachines()
	return nil
}

// ReleaseMachines отдаёт выбор станков всех операций декодеру.
func (e *Encoding) ReleaseMachines() {
	for j := range e.machines {
		for op := range e.machines[j] {
			e.machines[j][op] = FreeMachine
		}
	}
	e.Invalidate()
}

func (e *Encoding) Instance() *fjsp.Instance { return e.inst }

// Order - порядок вставки работ. Срез нельзя изменять.
func (e *Encoding) Order() []int { return e.order }

func (e *Encoding) Machine(job, op int) int { return e.machines[job][op] }

// JobMachines - назначения станков работы. Срез нельзя изменять.
func (e *Encoding) JobMachines(job int) []int { return e.machines[job] }

func (e *Encoding) IsFree(job, op int) bool { return e.machines[job][op] == FreeMachine }

// SetMachine фиксирует станок операции; недопустимый станок - ошибка программы.
func (e *Encoding) SetMachine(job, op, machine int) {
	if machine != FreeMachine && !e.inst.HasMachine(job, op, machine) {
		panic(fmt.Sprintf("encoding: machine %d is not eligible for job %d op %d", machine, job, op))
	}
	e.machines[job][op] = machine
}

// IsFullyImposed - ни одна операция не отдана декодеру.
func (e *Encoding) IsFullyImposed() bool {
	for j := range e.machines {
		if !e.IsJobImposed(j) {
			return false
		}
	}
	return true
}

func (e *Encoding) IsJobImposed(job int) bool {
	for _, m := range e.machines[job] {
		if m == FreeMachine {
			return false
		}
	}
	return true
}

// EntryPoint - старт работы по результатам последнего декодирования.
func (e *Encoding) EntryPoint(job int) int { return e.entryPoints[job] }

// EntryPoints - старты работ. Срез нельзя изменять.
func (e *Encoding) EntryPoints() []int { return e.entryPoints }

// SetEntryPoints копирует старты работ и пересчитывает makespan.
func (e *Encoding) SetEntryPoints(eps []int) {
	if len(eps) != len(e.entryPoints) {
		panic(fmt.Sprintf("encoding: entry points length must be %d (got %d)", len(e.entryPoints), len(eps)))
	}
	e.makespan = 0
	for j, ep := range eps {
		if ep < 0 {
			panic(fmt.Sprintf("encoding: negative entry point %d for job %d", ep, j))
		}
		e.entryPoints[j] = ep
		if end := ep + e.inst.JobDuration(j); end > e.makespan {
			e.makespan = end
		}
	}
}

// Makespan - кэшированное значение; calendar.Invalid, пока решение не декодировано.
func (e *Encoding) Makespan() int { return e.makespan }

func (e *Encoding) IsDecoded() bool { return e.makespan != calendar.Invalid }

// Invalidate сбрасывает кэшированный makespan после изменения решения.
func (e *Encoding) Invalidate() { e.makespan = calendar.Invalid }

func (e *Encoding) FirstJobImposedStart() int { return e.imposedStart }

// ImposeFirstJobStart задаёт старт первой в порядке работы для следующего декодирования.
func (e *Encoding) ImposeFirstJobStart(t int) {
	if t < 0 {
		panic(fmt.Sprintf("encoding: imposed start must be >= 0 (got %d)", t))
	}
	e.imposedStart = t
}

// Permutation возвращает копию порядка работ.
func (e *Encoding) Permutation() []int {
	out := make([]int, len(e.order))
	copy(out, e.order)
	return out
}

// MachinesCopy возвращает копию назначений станков.
func (e *Encoding) MachinesCopy() [][]int {
	out := make([][]int, len(e.machines))
	for j := range e.machines {
		out[j] = append([]int(nil), e.machines[j]...)
	}
	return out
}

// Gantt возвращает строки расписания в порядке (работа, операция).
func (e *Encoding) Gantt() []GanttRow {
	rows := make([]GanttRow, 0, e.inst.TotalOps())
	for j := range e.machines {
		for op, m := range e.machines[j] {
			start := e.entryPoints[j] + e.inst.Delay(j, op)
			rows = append(rows, GanttRow{
				Job:     j,
				Op:      op,
				Start:   start,
				End:     start + e.inst.Duration(j, op),
				Machine: m,
			})
		}
	}
	return rows
}

// ValidateSequencing проверяет, что порядок - перестановка работ.
func (e *Encoding) ValidateSequencing() error {
	return fjsp.ValidatePermutation(e.order, e.inst.NumJobs())
}

// ValidateAssignment проверяет допустимость всех зафиксированных станков.
func (e *Encoding) ValidateAssignment() error {
	if len(e.machines) != e.inst.NumJobs() {
		return errors.New("machine assignment does not match instance jobs")
	}
	for j := range e.machines {
		if len(e.machines[j]) != e.inst.NumOps(j) {
			return fmt.Errorf("job %d: assignment length must be %d (got %d)", j, e.inst.NumOps(j), len(e.machines[j]))
		}
		for op, m := range e.machines[j] {
			if m != FreeMachine && !e.inst.HasMachine(j, op, m) {
				return fmt.Errorf("job %d op %d: machine %d is not eligible", j, op, m)
			}
		}
	}
	return nil
}

// Validate - обе проверки легальности решения.
func (e *Encoding) Validate() error {
	if err := e.ValidateSequencing(); err != nil {
		return err
	}
	return e.ValidateAssignment()
}

// ValidateSchedule проверяет зафиксированное расписание: все станки назначены,
// операции одного станка не пересекаются, makespan совпадает с последним окончанием.
func (e *Encoding) ValidateSchedule() error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !e.IsDecoded() {
		return errors.New("encoding is not decoded")
	}
	if !e.IsFullyImposed() {
		return errors.New("schedule has operations without machine")
	}

	rows := e.Gantt()
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Machine != rows[b].Machine {
			return rows[a].Machine < rows[b].Machine
		}
		return rows[a].Start < rows[b].Start
	})
	last := 0
	for i, r := range rows {
		if i > 0 && rows[i-1].Machine == r.Machine && rows[i-1].End > r.Start {
			return fmt.Errorf("machine %d: job %d op %d overlaps job %d op %d",
				r.Machine, rows[i-1].Job, rows[i-1].Op, r.Job, r.Op)
		}
		last = max(last, r.End)
	}
	if last != e.makespan {
		return fmt.Errorf("makespan %d does not match last operation end %d", e.makespan, last)
	}
	return nil
}

func bernoulli(rng *rand.Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rng.Float64() < p
}

// shuffle выполняет случайную перестановку элементов.
func shuffle(p []int, rng *rand.Rand) {
	for i := len(p) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
}
