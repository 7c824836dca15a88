package pso

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
	"flexShop/internal/opt"
)

// Solver - рой частиц над random-keys порядка работ.
// Ключи сортируются в порядок вставки, станки выбирает декодер.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger
}

// New возвращает новый PSO-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

// particle описывает одну частицу роя.
type particle struct {
	pos []float64
	vel []float64

	// лучшая позиция частицы за всё время и её makespan
	pBestPos  []float64
	pBestCost int
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

	n := inst.NumJobs()

	iters := s.Cfg.Iterations
	if iters <= 0 {
		iters = s.Cfg.IterationsPerJob * n
	}

	log := s.Log.With().
		Str("solver", "pso").
		Int("jobs", n).
		Int("machines", inst.NumMachines()).
		Logger()
	log.Info().
		Int("iterations", iters).
		Int("particles", s.Cfg.Particles).
		Msg("run started")

	// Общие буферы декодирования ключей: частицы оцениваются последовательно
	perm := make([]int, n)
	enc := encoding.New(inst, s.Rng, false, 1)
	evaluate := func(keys []float64) int {
		decodeRandomKeys(keys, perm)
		if err := enc.ResetByPermutation(perm); err != nil {
			panic(err)
		}
		return dec.Decode(enc, false)
	}

	posMin, posMax := s.Cfg.PosMin, s.Cfg.PosMax
	doPosClamp := posMin < posMax

	gBestPos := make([]float64, n)
	gBestPerm := make([]int, n)
	gBestCost := math.MaxInt

	ps := make([]particle, s.Cfg.Particles)
	for i := range ps {
		p := &ps[i]
		p.pos = make([]float64, n)
		p.vel = make([]float64, n)
		p.pBestPos = make([]float64, n)

		for d := 0; d < n; d++ {
			if doPosClamp {
				p.pos[d] = posMin + s.Rng.Float64()*(posMax-posMin)
			} else {
				p.pos[d] = s.Rng.Float64()
			}
			if s.Cfg.VMax > 0 {
				p.vel[d] = (s.Rng.Float64()*2 - 1) * s.Cfg.VMax
			} else {
				p.vel[d] = (s.Rng.Float64()*2 - 1) * 0.1
			}
		}

		p.pBestCost = evaluate(p.pos)
		copy(p.pBestPos, p.pos)
		if p.pBestCost < gBestCost {
			gBestCost = p.pBestCost
			copy(gBestPos, p.pos)
			copy(gBestPerm, perm)
		}
	}

	w, c1, c2 := s.Cfg.W, s.Cfg.C1, s.Cfg.C2
	vMax := s.Cfg.VMax
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	for iter := 0; iter < iters; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return s.result(inst, dec, gBestPerm, iter, start, map[string]any{
				"stopped": "context",
			}), err
		}

		for i := range ps {
			p := &ps[i]

			for d := 0; d < n; d++ {
				r1 := s.Rng.Float64()
				r2 := s.Rng.Float64()

				v := w*p.vel[d] +
					c1*r1*(p.pBestPos[d]-p.pos[d]) +
					c2*r2*(gBestPos[d]-p.pos[d])

				if vMax > 0 {
					v = max(-vMax, min(v, vMax))
				}
				p.vel[d] = v

				x := p.pos[d] + v
				if doPosClamp {
					if x < posMin {
						x = posMin
						p.vel[d] = 0
					} else if x > posMax {
						x = posMax
						p.vel[d] = 0
					}
				}
				p.pos[d] = x
			}

			cost := evaluate(p.pos)
			if cost < p.pBestCost {
				p.pBestCost = cost
				copy(p.pBestPos, p.pos)
			}
			if cost < gBestCost {
				gBestCost = cost
				copy(gBestPos, p.pos)
				copy(gBestPerm, perm)
			}
		}

		if progress.Allow() {
			log.Debug().Int("iter", iter).Int("best", gBestCost).Msg("progress")
		}
	}

	res := s.result(inst, dec, gBestPerm, iters, start, map[string]any{
		"particles": s.Cfg.Particles,
		"w":         w,
		"c1":        c1,
		"c2":        c2,
		"vmax":      vMax,
		"pos_min":   posMin,
		"pos_max":   posMax,
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

// decodeRandomKeys записывает в outPerm индексы ключей по возрастанию;
// при равных ключах раньше идёт меньший индекс.
func decodeRandomKeys(keys []float64, outPerm []int) {
	for i := range outPerm {
		outPerm[i] = i
	}
	sort.SliceStable(outPerm, func(a, b int) bool {
		return keys[outPerm[a]] < keys[outPerm[b]]
	})
}
