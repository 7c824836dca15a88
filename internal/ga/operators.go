package ga

import (
	"math/rand"

	"flexShop/internal/encoding"
)

// tournamentSelect реализует турнирный отбор.
// возвращается индекс особи с наилучшим значением fitness (минимальное значение целевой функции).
func tournamentSelect(pop []*encoding.Encoding, tournamentSize int, rng *rand.Rand) int {
	best := rng.Intn(len(pop))
	bestScore := pop[best].Makespan()
	for i := 1; i < tournamentSize; i++ {
		cand := rng.Intn(len(pop))
		if pop[cand].Makespan() < bestScore {
			best = cand
			bestScore = pop[cand].Makespan()
		}
	}
	return best
}

// mutate меняет местами две работы и переназначает станок одной гибкой операции.
func mutate(e *encoding.Encoding, pFree float64, rng *rand.Rand) {
	e.ShiftJobs(rng)
	e.MutateResource(pFree, rng)
}

// binaryTournament сравнивает две различные случайные особи; при равенстве побеждает вторая.
func binaryTournament(pop []*encoding.Encoding, rng *rand.Rand) int {
	i := rng.Intn(len(pop))
	j := rng.Intn(len(pop) - 1)
	if j >= i {
		j++
	}
	if pop[i].Makespan() < pop[j].Makespan() {
		return i
	}
	return j
}
