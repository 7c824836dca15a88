package aco

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
	"flexShop/internal/opt"
)

// Solver - муравьиный алгоритм по порядку вставки работ.
// Станки всех операций выбирает декодер.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger
}

// New возвращает новый ACO-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
// Используется в фабриках.
func New(cfg Config, rng *rand.Rand) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	return &Solver{Cfg: cfg, Rng: rng, Log: zerolog.Nop()}, nil
}

// Solve - реализация эвристики.
func (s *Solver) Solve(ctx context.Context, inst *fjsp.Instance) (opt.Result, error) {
	start := time.Now()

	// Валидация входных данных
	if err := inst.Validate(); err != nil {
		return opt.Result{}, err
	}
	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, err
	}
	if s.Rng == nil {
		return opt.Result{}, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}

	dec, err := decoder.New(inst)
	if err != nil {
		return opt.Result{}, err
	}

	n := inst.NumJobs()

	maxIter := s.Cfg.Iterations
	if maxIter <= 0 {
		maxIter = s.Cfg.IterationsPerJob * n
	}

	log := s.Log.With().
		Str("solver", "aco").
		Int("jobs", n).
		Int("machines", inst.NumMachines()).
		Logger()
	log.Info().
		Int("iterations", maxIter).
		Int("ants", s.Cfg.Ants).
		Msg("run started")

	// Длинные работы выгоднее вставлять раньше, как в правиле LJD
	eta := make([]float64, n)
	longest := 0
	for j := 0; j < n; j++ {
		longest = max(longest, inst.JobDuration(j))
	}
	for j := 0; j < n; j++ {
		eta[j] = float64(inst.JobDuration(j)) / float64(longest)
	}

	// Матрица феромонов: строка n - фиктивный старт
	tau := make([]float64, (n+1)*n)
	for i := range tau {
		tau[i] = s.Cfg.Tau0
	}

	// Вспомогательные буферы
	perm := make([]int, n)        // текущая перестановка
	available := make([]int, n)   // доступные работы
	weights := make([]float64, n) // веса вероятностного выбора
	ant := encoding.New(inst, s.Rng, false, 1)

	bestPerm := ant.Permutation()
	bestCost := dec.Decode(ant, false)
	iterBestPerm := make([]int, n)

	alpha := s.Cfg.Alpha
	beta := s.Cfg.Beta
	rho := s.Cfg.Rho
	Q := s.Cfg.Q
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	for iter := 0; iter < maxIter; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return s.result(inst, dec, bestPerm, iter, start, map[string]any{
				"stopped": "context",
			}), err
		}

		// Лучшее решение текущей итерации
		iterBestCost := math.MaxInt

		for a := 0; a < s.Cfg.Ants; a++ {
			constructPermutation(
				n, tau, eta,
				alpha, beta,
				s.Cfg.CandidateK,
				s.Rng,
				perm, available, weights,
			)

			if err := ant.ResetByPermutation(perm); err != nil {
				panic(err)
			}
			cost := dec.Decode(ant, false)

			if cost < iterBestCost {
				iterBestCost = cost
				copy(iterBestPerm, perm)
			}
			if cost < bestCost {
				bestCost = cost
				copy(bestPerm, perm)
			}
		}

		// Испарение феромона
		ev := 1.0 - rho
		for i := range tau {
			tau[i] *= ev
			if tau[i] < 1e-12 {
				tau[i] = 1e-12
			}
		}

		// Откладываем феромон только по лучшему пути итерации
		addPheromonePath(tau, n, iterBestPerm, Q/float64(iterBestCost))

		if progress.Allow() {
			log.Debug().Int("iter", iter).Int("best", bestCost).Int("iter_best", iterBestCost).Msg("progress")
		}
	}

	res := s.result(inst, dec, bestPerm, maxIter, start, map[string]any{
		"ants":        s.Cfg.Ants,
		"alpha":       alpha,
		"beta":        beta,
		"rho":         rho,
		"Q":           Q,
		"tau0":        s.Cfg.Tau0,
		"candidate_k": s.Cfg.CandidateK,
	})
	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}

// result декодирует лучший порядок с фиксацией станков.
func (s *Solver) result(inst *fjsp.Instance, dec *decoder.Decoder, best []int, iters int, start time.Time, meta map[string]any) opt.Result {
	enc, err := encoding.FromPermutation(inst, best)
	if err != nil {
		panic(err)
	}
	dec.Decode(enc, true)
	res := opt.FromEncoding(enc, dec.Decodes(), iters, meta)
	res.Duration = time.Since(start)
	return res
}

func tauIdx(n, from, to int) int {
	return from*n + to
}

// addPheromonePath усиливает феромон вдоль пути перестановки
// от фиктивного старта до последней работы.
func addPheromonePath(tau []float64, n int, perm []int, delta float64) {
	if len(perm) == 0 {
		return
	}
	tau[tauIdx(n, n, perm[0])] += delta
	for i := 0; i < len(perm)-1; i++ {
		tau[tauIdx(n, perm[i], perm[i+1])] += delta
	}
}

// constructPermutation строит одну перестановку работ.
// На каждом шаге следующая работа выбирается с весом tau^alpha * eta^beta.
func constructPermutation(
	n int,
	tau []float64,
	eta []float64,
	alpha float64,
	beta float64,
	candidateK int,
	rng *rand.Rand,
	outPerm []int,
	available []int,
	weights []float64,
) {
	for i := 0; i < n; i++ {
		available[i] = i
	}
	rem := n

	prev := n

	for pos := 0; pos < n; pos++ {
		// Ограничение списка кандидатов
		k := rem
		if candidateK > 0 && candidateK < rem {
			k = candidateK
			for t := 0; t < k; t++ {
				r := t + rng.Intn(rem-t)
				available[t], available[r] = available[r], available[t]
			}
		}

		sumW := 0.0
		for i := 0; i < k; i++ {
			j := available[i]
			w := fastPow(tau[tauIdx(n, prev, j)], alpha) * fastPow(eta[j], beta)
			weights[i] = w
			sumW += w
		}

		// Рулетка
		var chosenIdx int
		if sumW <= 0 {
			chosenIdx = rng.Intn(k)
		} else {
			r := rng.Float64() * sumW
			acc := 0.0
			chosenIdx = k - 1
			for i := 0; i < k; i++ {
				acc += weights[i]
				if r <= acc {
					chosenIdx = i
					break
				}
			}
		}

		job := available[chosenIdx]
		outPerm[pos] = job
		prev = job

		available[chosenIdx], available[rem-1] = available[rem-1], available[chosenIdx]
		rem--
	}
}

// fastPow обходит math.Pow для частых степеней.
func fastPow(x, p float64) float64 {
	switch p {
	case 0:
		return 1.0
	case 1:
		return x
	case 2:
		return x * x
	}
	return math.Pow(x, p)
}
