package abc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
	"flexShop/internal/opt"
)

// Solver - пчелиная колония с фиксированными параметрами операторов.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger
}

// New возвращает новый ABC-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

	cfg := s.Cfg
	rng := s.Rng
	n := cfg.FoodSources
	nrp := int(cfg.NrpFraction * float64(inst.NumJobs()))
	nswp := int(cfg.NswpFraction * float64(inst.NumJobs()))
	nmc := int(cfg.NmcFraction * float64(inst.TotalOps()))
	maxIter := cfg.iterations(inst.NumJobs(), inst.NumMachines())

	log := s.Log.With().
		Str("solver", "abc").
		Int("jobs", inst.NumJobs()).
		Int("machines", inst.NumMachines()).
		Logger()
	log.Info().
		Int("iterations", maxIter).
		Int("nrp", nrp).
		Int("nswp", nswp).
		Int("nmc", nmc).
		Msg("run started")

	// Источники и рабочие пчёлы - два набора слотов; при замене слоты меняются местами
	sources := make([]*encoding.Encoding, n)
	bees := make([]*encoding.Encoding, n)
	stagnation := make([]int, n)
	var best *encoding.Encoding

	observe := func(e *encoding.Encoding) {
		if best == nil {
			best = e.Clone()
			return
		}
		if e.Makespan() < best.Makespan() {
			best.CopyFrom(e)
		}
	}
	reset := func(i int) {
		sources[i].Randomize(rng, true, cfg.PFreeInit)
		dec.Decode(sources[i], true)
		stagnation[i] = 0
		observe(sources[i])
	}
	// substitute ставит пчелу bee в слот источника i и возвращает вытесненное решение.
	substitute := func(i int, bee *encoding.Encoding) *encoding.Encoding {
		old := sources[i]
		sources[i] = bee
		stagnation[i] = -1
		observe(bee)
		return old
	}

	for i := range sources {
		sources[i] = encoding.New(inst, rng, true, cfg.PFreeInit)
		dec.Decode(sources[i], true)
		observe(sources[i])
		bees[i] = sources[i].Clone()
	}
	onlooker := sources[0].Clone()
	origins := make([]int, cfg.Onlookers)
	progress := rate.NewLimiter(rate.Every(time.Second), 1)
	resets := 0

	for iter := 0; iter < maxIter; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.FromEncoding(best, dec.Decodes(), iter, map[string]any{"stopped": "context"})
			res.Duration = time.Since(start)
			return res, err
		}

		// Рабочие пчёлы: все кандидаты строятся от источников текущего поколения
		for i := range bees {
			bees[i].CopyFrom(sources[i])
			donor := sources[rng.Intn(n)]
			bees[i].Permute(donor, nrp, nswp, nmc, cfg.PFree, cfg.Pmpi, rng)
		}
		for i := range bees {
			if dec.Decode(bees[i], true) < sources[i].Makespan() {
				bees[i] = substitute(i, bees[i])
			}
		}

		// Наблюдатели: бинарный турнир с вероятностью Pbt в пользу лучшего
		for k := range origins {
			a := rng.Intn(n)
			b := rng.Intn(n - 1)
			if b >= a {
				b++
			}
			if sources[a].Makespan() > sources[b].Makespan() {
				a, b = b, a
			}
			if rng.Float64() < cfg.Pbt {
				origins[k] = a
			} else {
				origins[k] = b
			}
		}
		for _, i := range origins {
			onlooker.CopyFrom(sources[i])
			onlooker.Permute(sources[rng.Intn(n)], nrp, nswp, nmc, cfg.PFree, cfg.Pmpi, rng)
			if dec.Decode(onlooker, true) < sources[i].Makespan() {
				onlooker = substitute(i, onlooker)
			}
		}

		// Разведчики: обновление истощённых источников
		for i := range stagnation {
			stagnation[i]++
			if stagnation[i] >= cfg.Limit {
				reset(i)
				resets++
			}
		}

		if progress.Allow() {
			log.Debug().Int("iter", iter).Int("best", best.Makespan()).Int("resets", resets).Msg("progress")
		}
	}

	res := opt.FromEncoding(best, dec.Decodes(), maxIter, map[string]any{
		"food_sources": cfg.FoodSources,
		"onlookers":    cfg.Onlookers,
		"limit":        cfg.Limit,
		"resets":       resets,
	})
	res.Duration = time.Since(start)
	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}
