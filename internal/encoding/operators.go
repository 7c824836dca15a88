package encoding

import (
	"fmt"
	"math/rand"
)

// Permute - комбинированный оператор пчелиной колонии: с вероятностью pMpi
// рекомбинация с other, иначе возмущение.
func (e *Encoding) Permute(other *Encoding, nrp, nswp, nmc int, pFree, pMpi float64, rng *rand.Rand) {
	if bernoulli(rng, pMpi) {
		e.PermuteByOther(other, nrp, rng)
		return
	}
	e.Perturbation(nswp, nmc, pFree, rng)
}

// PermuteByOther копирует работы nrp случайных позиций донора (вместе с их станками),
// остальные позиции заполняются собственными работами в исходном относительном порядке.
func (e *Encoding) PermuteByOther(other *Encoding, nrp int, rng *rand.Rand) {
	n := len(e.order)
	if len(other.order) != n {
		panic(fmt.Sprintf("encoding: donor has %d jobs, receiver %d", len(other.order), n))
	}

	next := make([]int, n)
	for i := range next {
		next[i] = -1
	}
	taken := make([]bool, n)
	for i := 0; i < nrp; i++ {
		pos := rng.Intn(n)
		next[pos] = other.order[pos]
		taken[next[pos]] = true
	}

	oi := 0
	for i := range next {
		if next[i] >= 0 {
			continue
		}
		for taken[e.order[oi]] {
			oi++
		}
		next[i] = e.order[oi]
		oi++
	}
	copy(e.order, next)

	for j, ok := range taken {
		if ok {
			copy(e.machines[j], other.machines[j])
		}
	}
	e.Invalidate()
}

// PermuteWithOther - двухродительский порядковый кроссовер: позиции e делятся монеткой
// на сохраняемые и заполняемые из other по порядку; other получает симметричного потомка.
func (e *Encoding) PermuteWithOther(other *Encoding, rng *rand.Rand) {
	n := len(e.order)
	if len(other.order) != n {
		panic(fmt.Sprintf("encoding: partner has %d jobs, receiver %d", len(other.order), n))
	}

	c1 := make([]int, n)
	c2 := make([]int, n)
	for i := range c1 {
		c1[i] = -1
		c2[i] = -1
	}
	kept := make([]bool, n)
	for i, job := range e.order {
		if rng.Intn(2) == 0 {
			kept[job] = true
			c1[i] = job
		}
	}

	pos := 0
	for i, job := range other.order {
		if kept[job] {
			c2[i] = job
			continue
		}
		for c1[pos] >= 0 {
			pos++
		}
		c1[pos] = job
	}
	pos = 0
	for _, job := range e.order {
		if kept[job] {
			continue
		}
		for c2[pos] >= 0 {
			pos++
		}
		c2[pos] = job
	}

	copy(e.order, c1)
	copy(other.order, c2)
	e.Invalidate()
	other.Invalidate()
}

// Perturbation: nswp обменов позиций и nmc переназначений станков.
func (e *Encoding) Perturbation(nswp, nmc int, pFree float64, rng *rand.Rand) {
	for i := 0; i < nswp; i++ {
		e.ShiftJobs(rng)
	}
	for i := 0; i < nmc; i++ {
		e.MutateResource(pFree, rng)
	}
}

// ShiftJobs меняет местами две различные случайные позиции и возвращает меньшую из них.
func (e *Encoding) ShiftJobs(rng *rand.Rand) int {
	n := len(e.order)
	if n < 2 {
		return 0
	}
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	e.order[i], e.order[j] = e.order[j], e.order[i]
	e.Invalidate()
	if i < j {
		return i
	}
	return j
}

// ShiftJobsAndRandomizeResources после обмена освобождает с вероятностью pHyb
// гибкие операции работ, стоящих после первой затронутой позиции.
func (e *Encoding) ShiftJobsAndRandomizeResources(pHyb float64, rng *rand.Rand) {
	first := e.ShiftJobs(rng)
	if pHyb <= 0 {
		return
	}
	for _, job := range e.order[first+1:] {
		for op := range e.machines[job] {
			if e.inst.IsFlexible(job, op) && bernoulli(rng, pHyb) {
				e.machines[job][op] = FreeMachine
			}
		}
	}
}

// MutateResource выбирает случайную гибкую операцию и с вероятностью pFree отдаёт её
// декодеру, иначе назначает другой допустимый станок.
func (e *Encoding) MutateResource(pFree float64, rng *rand.Rand) {
	ref, ok := e.randomFlexibleOp(rng)
	if !ok {
		return
	}
	if bernoulli(rng, pFree) {
		e.machines[ref.Job][ref.Op] = FreeMachine
	} else {
		e.machines[ref.Job][ref.Op] = e.otherMachine(ref.Job, ref.Op, rng)
	}
	e.Invalidate()
}

// SwapResource назначает случайной гибкой операции станок, отличный от текущего.
func (e *Encoding) SwapResource(rng *rand.Rand) {
	ref, ok := e.randomFlexibleOp(rng)
	if !ok {
		return
	}
	e.machines[ref.Job][ref.Op] = e.otherMachine(ref.Job, ref.Op, rng)
	e.Invalidate()
}

func (e *Encoding) otherMachine(job, op int, rng *rand.Rand) int {
	curr := e.machines[job][op]
	m := e.inst.RandomMachine(job, op, rng)
	for m == curr {
		m = e.inst.RandomMachine(job, op, rng)
	}
	return m
}

// SwapPositions меняет местами работы в позициях i и j.
func (e *Encoding) SwapPositions(i, j int) {
	e.order[i], e.order[j] = e.order[j], e.order[i]
	e.Invalidate()
}

// MovePosition извлекает работу из позиции from и вставляет её в позицию to.
func (e *Encoding) MovePosition(from, to int) {
	if from == to {
		return
	}
	p := e.order
	val := p[from]
	if from < to {
		copy(p[from:to], p[from+1:to+1])
	} else {
		copy(p[to+1:from+1], p[to:from])
	}
	p[to] = val
	e.Invalidate()
}
