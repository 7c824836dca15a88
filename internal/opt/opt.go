package opt

import (
	"context"
	"fmt"
	"time"

	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
)

// Optimizer - общий интерфейс всех драйверов поиска.
type Optimizer interface {
	Solve(ctx context.Context, inst *fjsp.Instance) (Result, error)
}

type Result struct {
	Permutation []int
	Machines    [][]int
	EntryPoints []int
	Makespan    int
	Evaluations int
	Iterations  int
	Duration    time.Duration
	Meta        map[string]any
}

// FromEncoding копирует лучшее решение в результат. Решение должно быть декодировано.
func FromEncoding(best *encoding.Encoding, evals, iters int, meta map[string]any) Result {
	eps := make([]int, len(best.EntryPoints()))
	copy(eps, best.EntryPoints())
	return Result{
		Permutation: best.Permutation(),
		Machines:    best.MachinesCopy(),
		EntryPoints: eps,
		Makespan:    best.Makespan(),
		Evaluations: evals,
		Iterations:  iters,
		Meta:        meta,
	}
}

// Encoding восстанавливает решение из результата вместе со стартами работ.
func (r Result) Encoding(inst *fjsp.Instance) (*encoding.Encoding, error) {
	enc, err := encoding.FromPermutation(inst, r.Permutation)
	if err != nil {
		return nil, err
	}
	if len(r.Machines) != inst.NumJobs() {
		return nil, fmt.Errorf("назначение станков: ожидалось %d работ (получено %d)", inst.NumJobs(), len(r.Machines))
	}
	for j, row := range r.Machines {
		if len(row) != inst.NumOps(j) {
			return nil, fmt.Errorf("работа %d: ожидалось %d операций (получено %d)", j, inst.NumOps(j), len(row))
		}
		for op, m := range row {
			if m == encoding.FreeMachine {
				continue
			}
			if !inst.HasMachine(j, op, m) {
				return nil, fmt.Errorf("работа %d, операция %d: станок %d недопустим", j, op, m)
			}
			enc.SetMachine(j, op, m)
		}
	}
	if len(r.EntryPoints) != inst.NumJobs() {
		return nil, fmt.Errorf("старты работ: ожидалось %d (получено %d)", inst.NumJobs(), len(r.EntryPoints))
	}
	for j, ep := range r.EntryPoints {
		if ep < 0 {
			return nil, fmt.Errorf("работа %d: отрицательный старт %d", j, ep)
		}
	}
	enc.SetEntryPoints(r.EntryPoints)
	return enc, nil
}
