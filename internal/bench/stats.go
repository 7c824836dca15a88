package bench

import (
	"math"
	"slices"
)

// Stats - сводка по выборке: лучшее (минимум), худшее, среднее, медиана
// и выборочное стандартное отклонение (n-1).
type Stats[T int | float64] struct {
	N      int
	Best   T
	Worst  T
	Mean   float64
	Median float64
	Std    float64
}

func Calc[T int | float64](values []T) Stats[T] {
	s := Stats[T]{N: len(values)}
	if s.N == 0 {
		return s
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	s.Best = sorted[0]
	s.Worst = sorted[s.N-1]

	mid := s.N / 2
	if s.N%2 == 1 {
		s.Median = float64(sorted[mid])
	} else {
		s.Median = (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
	}

	sum := 0.0
	for _, v := range values {
		sum += float64(v)
	}
	s.Mean = sum / float64(s.N)

	if s.N >= 2 {
		variance := 0.0
		for _, v := range values {
			d := float64(v) - s.Mean
			variance += d * d
		}
		s.Std = math.Sqrt(variance / float64(s.N-1))
	}
	return s
}
