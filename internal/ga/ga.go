package ga

import (
	"context"
	"fmt"
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

// Solver - реализация генетического алгоритма для гибкого job-shop.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger
}

// New возвращает новый GA-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

	// Проверка корректности входных данных и конфигурации
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

	popSize := s.Cfg.Population
	log := s.Log.With().
		Str("solver", "ga").
		Int("jobs", inst.NumJobs()).
		Int("machines", inst.NumMachines()).
		Logger()
	log.Info().
		Int("population", popSize).
		Int("generations", s.Cfg.Generations).
		Msg("run started")

	// Две популяции: текущая (A) и следующая (B)
	popA := make([]*encoding.Encoding, popSize)
	popB := make([]*encoding.Encoding, popSize)

	// Инициализация начальной популяции
	for i := 0; i < popSize; i++ {
		popA[i] = encoding.New(inst, s.Rng, true, s.Cfg.PFreeInit)
		dec.Decode(popA[i], true)
		popB[i] = popA[i].Clone()
	}

	// Поиск лучшего решения в начальной популяции
	best := popA[0].Clone()
	for i := 1; i < popSize; i++ {
		if popA[i].Makespan() < best.Makespan() {
			best.CopyFrom(popA[i])
		}
	}

	// Временный потомок, если в популяции остаётся нечётное число мест
	scratchChild := popA[0].Clone()

	// Индексы для сортировки популяции по приспособленности
	idxs := make([]int, popSize)
	for i := range idxs {
		idxs[i] = i
	}
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	for gen := 0; gen < s.Cfg.Generations; gen++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.FromEncoding(best, dec.Decodes(), gen, map[string]any{"stopped": "context"})
			res.Duration = time.Since(start)
			return res, err
		}

		// Сортировка индексов по возрастанию значения целевой функции
		sort.Slice(idxs, func(i, j int) bool {
			return popA[idxs[i]].Makespan() < popA[idxs[j]].Makespan()
		})

		write := 0

		// Элитизм (переносим лучших особей без изменений)
		for e := 0; e < s.Cfg.Elite; e++ {
			popB[write].CopyFrom(popA[idxs[e]])
			write++
		}

		// Генерация остальных особей нового поколения
		for write < popSize {
			// Турнирный отбор
			p1 := tournamentSelect(popA, s.Cfg.TournamentSize, s.Rng)
			p2 := tournamentSelect(popA, s.Cfg.TournamentSize, s.Rng)
			for p2 == p1 {
				p2 = tournamentSelect(popA, s.Cfg.TournamentSize, s.Rng)
			}

			child1 := popB[write]
			hasSecond := write+1 < popSize
			child2 := scratchChild
			if hasSecond {
				child2 = popB[write+1]
			}
			child1.CopyFrom(popA[p1])
			child2.CopyFrom(popA[p2])

			// Кроссовер порядка работ, станки наследуются от своего родителя
			if s.Rng.Float64() < s.Cfg.CrossoverRate {
				child1.PermuteWithOther(child2, s.Rng)
			}

			// Мутация
			if s.Rng.Float64() < s.Cfg.MutationRate {
				mutate(child1, s.Cfg.MutationPFree, s.Rng)
			}
			if hasSecond && s.Rng.Float64() < s.Cfg.MutationRate {
				mutate(child2, s.Cfg.MutationPFree, s.Rng)
			}

			// Оценка потомков; неизменённые копии сохраняют makespan родителя
			children := []*encoding.Encoding{child1}
			if hasSecond {
				children = append(children, child2)
			}
			for _, c := range children {
				if !c.IsDecoded() {
					dec.Decode(c, true)
				}
				if c.Makespan() < best.Makespan() {
					best.CopyFrom(c)
				}
				write++
			}
		}

		// Смена поколений
		popA, popB = popB, popA

		if progress.Allow() {
			log.Debug().Int("gen", gen).Int("best", best.Makespan()).Msg("progress")
		}
	}

	res := opt.FromEncoding(best, dec.Decodes(), s.Cfg.Generations, map[string]any{
		"population":  s.Cfg.Population,
		"generations": s.Cfg.Generations,
		"elite":       s.Cfg.Elite,
	})
	res.Duration = time.Since(start)
	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}
