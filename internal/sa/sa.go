package sa

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

// Solver - структура реализации алгоритма имитации отжига
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger
}

// New возвращает новый SA-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

	maxIter := s.Cfg.Iterations
	if maxIter <= 0 {
		maxIter = s.Cfg.IterationsPerJob * inst.NumJobs()
	}

	log := s.Log.With().
		Str("solver", "sa").
		Int("jobs", inst.NumJobs()).
		Int("machines", inst.NumMachines()).
		Logger()

	curr, origin := s.initialSolution(inst, dec)
	best := curr.Clone()
	cand := curr.Clone()
	log.Info().
		Int("iterations", maxIter).
		Str("start", origin).
		Int("start_makespan", curr.Makespan()).
		Msg("run started")

	T := s.Cfg.InitialTemp
	accepted := 0
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	iter := 0
	for ; iter < maxIter && T > s.Cfg.FinalTemp; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.FromEncoding(best, dec.Decodes(), iter, map[string]any{
				"stopped": "context",
				"T":       T,
			})
			res.Duration = time.Since(start)
			return res, err
		}

		next := s.neighbor(curr, cand, dec)
		delta := next.Makespan() - curr.Makespan()
		accept := false
		if delta <= 0 {
			// Неухудшающее решение принимаем всегда
			accept = true
		} else {
			// Критерий Метрополиса:
			// допускает принятие ухудшающих решений
			p := math.Exp(-float64(delta) / T)
			if s.Rng.Float64() < p {
				accept = true
			}
		}

		if accept {
			if next == cand {
				curr, cand = cand, curr
			} else {
				curr = next
			}
			accepted++

			if curr.Makespan() < best.Makespan() {
				best.CopyFrom(curr)
			}
			// Температура снижается только при принятии хода
			T *= s.Cfg.Alpha
		}

		if progress.Allow() {
			log.Debug().Int("iter", iter).Int("best", best.Makespan()).Float64("T", T).Msg("progress")
		}
	}

	res := opt.FromEncoding(best, dec.Decodes(), iter, map[string]any{
		"initial_temp": s.Cfg.InitialTemp,
		"final_temp":   s.Cfg.FinalTemp,
		"alpha":        s.Cfg.Alpha,
		"neighborhood": string(s.Cfg.Neighborhood),
		"accepted":     accepted,
		"start":        origin,
	})
	res.Duration = time.Since(start)
	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Int("accepted", accepted).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}

// initialSolution - лучшее из случайного решения и решений по правилам диспетчеризации.
// Возвращает решение и название источника.
func (s *Solver) initialSolution(inst *fjsp.Instance, dec *decoder.Decoder) (*encoding.Encoding, string) {
	best := encoding.New(inst, s.Rng, false, 1)
	dec.Decode(best, true)
	origin := "random"

	for _, rule := range encoding.DispatchRules {
		e := encoding.New(inst, s.Rng, false, 1)
		e.Dispatch(rule)
		if dec.Decode(e, true) < best.Makespan() {
			best = e
			origin = string(rule)
		}
	}
	return best, origin
}

// neighbor возвращает декодированного соседа curr: для критической окрестности -
// лучший из всех соседей, иначе одиночный ход по порядку работ, записанный в cand,
// со станками, выбранными декодером заново.
func (s *Solver) neighbor(curr, cand *encoding.Encoding, dec *decoder.Decoder) *encoding.Encoding {
	switch s.Cfg.Neighborhood {
	case NeighborhoodSwap, NeighborhoodInsert:
		cand.CopyFrom(curr)
		if s.Cfg.Neighborhood == NeighborhoodSwap {
			cand.ShiftJobs(s.Rng)
		} else {
			n := len(cand.Order())
			if n > 1 {
				from := s.Rng.Intn(n)
				to := s.Rng.Intn(n - 1)
				if to >= from {
					to++
				}
				cand.MovePosition(from, to)
			}
		}
		cand.ReleaseMachines()
		dec.Decode(cand, true)
		return cand
	default:
		var best *encoding.Encoding
		for _, n := range curr.Neighbors(s.Rng) {
			dec.Decode(n, true)
			if best == nil || n.Makespan() < best.Makespan() {
				best = n
			}
		}
		return best
	}
}
