package ts

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

// maxInt используется как бесконечность для стоимостей.
const maxInt = int(^uint(0) >> 1)

// Solver - структура реализации табу-поиска по порядку работ.
// Станки всех операций выбирает декодер.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger
}

// New возвращает новый TS-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

// move - ход: для блочной окрестности (длина, k, l), иначе (from, to).
type move struct {
	g, from, to int
}

// Solve - основной цикл алгоритма
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
	blockMax := s.blockMax(n)

	log := s.Log.With().
		Str("solver", "ts").
		Int("jobs", n).
		Int("machines", inst.NumMachines()).
		Logger()

	// Начальное решение по правилу LJD, все станки свободны
	curr := encoding.New(inst, s.Rng, false, 1)
	curr.Dispatch(encoding.DispatchLJD)
	currCost := dec.Decode(curr, false)
	cand := curr.Clone()

	// Глобально лучшее решение
	best := curr.Permutation()
	bestCost := currCost

	log.Info().
		Int("iterations", maxIter).
		Str("neighborhood", string(s.Cfg.Neighborhood)).
		Int("start_makespan", currCost).
		Msg("run started")

	// Табу-список - кольцевой буфер с мапой
	// Ёмкость выбирается с запасом относительно длины табу
	tabu := newTabuList(max(32, (s.Cfg.TabuTenure+s.Cfg.TabuTenureRand)*4))
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	iter := 0
	for ; iter < maxIter && n > 1; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return s.result(inst, dec, best, iter, start, map[string]any{
				"stopped": "context",
			}), err
		}

		// Лучший допустимый ход
		bestMove, bestMoveCost, bestMoveKey := move{}, maxInt, uint64(0)
		found := false

		// Запасной ход (лучший без учёта табу),
		// используется если все допустимые ходы табуированы
		fallbackMove, fallbackCost, fallbackKey := move{}, maxInt, uint64(0)

		evaluate := func(m move) {
			key := s.tabuKey(curr, m)

			cand.CopyFrom(curr)
			s.apply(cand, m)
			cost := dec.Decode(cand, false)

			if cost < fallbackCost {
				fallbackMove, fallbackCost, fallbackKey = m, cost, key
			}

			// Табуированный ход пропускается,
			// если не выполняется критерий аспирации
			if tabu.IsTabu(key, iter) && cost >= bestCost {
				return
			}
			if cost < bestMoveCost {
				bestMove, bestMoveCost, bestMoveKey = m, cost, key
				found = true
			}
		}

		if s.Cfg.Neighborhood == NeighborhoodBlock {
			for g := 1; g <= blockMax; g++ {
				for k := 0; k <= n-2*g; k++ {
					for l := k + g; l <= n-g; l++ {
						evaluate(move{g: g, from: k, to: l})
					}
				}
			}
		} else {
			for k := 0; k < s.Cfg.NeighborsPerIter; k++ {
				from := s.Rng.Intn(n)
				to := s.Rng.Intn(n - 1)
				if to >= from {
					to++
				}
				evaluate(move{from: from, to: to})
			}
		}

		// Выбор хода: сначала допустимый лучший, затем запасной
		chosen, chosenKey := bestMove, bestMoveKey
		if !found {
			chosen, chosenKey = fallbackMove, fallbackKey
		}

		// Применение выбранного хода
		s.apply(curr, chosen)
		currCost = dec.Decode(curr, false)

		// Добавление хода в табу-список
		tenure := s.Cfg.TabuTenure
		if s.Cfg.TabuTenureRand > 0 {
			tenure += s.Rng.Intn(s.Cfg.TabuTenureRand + 1)
		}
		tabu.Add(chosenKey, iter+tenure)

		// Обновление глобально лучшего решения
		if currCost < bestCost {
			bestCost = currCost
			copy(best, curr.Order())
		}

		if progress.Allow() {
			log.Debug().Int("iter", iter).Int("best", bestCost).Int("current", currCost).Msg("progress")
		}
	}

	res := s.result(inst, dec, best, iter, start, map[string]any{
		"tabu_tenure":        s.Cfg.TabuTenure,
		"tabu_tenure_rand":   s.Cfg.TabuTenureRand,
		"neighbors_per_iter": s.Cfg.NeighborsPerIter,
		"block_max":          blockMax,
		"neighborhood":       string(s.Cfg.Neighborhood),
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

// blockMax - наибольшая длина блока, при которой два блока помещаются в порядок.
func (s *Solver) blockMax(n int) int {
	g := s.Cfg.BlockMax
	if g == 0 {
		g = int(math.Sqrt(float64(n)) + 0.5)
	}
	return min(g, n/2)
}

func (s *Solver) apply(e *encoding.Encoding, m move) {
	switch s.Cfg.Neighborhood {
	case NeighborhoodBlock:
		applyBlockSwap(e, m.g, m.from, m.to)
	case NeighborhoodSwap:
		e.SwapPositions(m.from, m.to)
	default:
		e.MovePosition(m.from, m.to)
	}
}

// tabuKey: обмен блоков обратен сам себе и табуируется целиком,
// для insert и swap табуируется обратный ход работы.
func (s *Solver) tabuKey(curr *encoding.Encoding, m move) uint64 {
	if s.Cfg.Neighborhood == NeighborhoodBlock {
		return moveKey(m.g, m.from, m.to)
	}
	return moveKey(curr.Order()[m.from], m.to, m.from)
}

// applyBlockSwap меняет местами блоки длины g, начинающиеся в позициях k и l (k+g <= l).
func applyBlockSwap(e *encoding.Encoding, g, k, l int) {
	for p := 0; p < g; p++ {
		e.SwapPositions(k+p, l+p)
	}
}

// tabuList - структура табу-списка.
// Реализована как кольцевой буфер фиксированного размера
// с map для быстрой проверки табуированности.
type tabuList struct {
	m   map[uint64]int // ключ → итерация истечения табу
	key []uint64       // кольцевой буфер ключей
	exp []int          // соответствующие сроки истечения
	i   int            // текущая позиция в кольце
}

// newTabuList создаёт табу-список заданной ёмкости.
func newTabuList(capacity int) *tabuList {
	if capacity < 8 {
		capacity = 8
	}
	return &tabuList{
		m:   make(map[uint64]int, capacity*2),
		key: make([]uint64, capacity),
		exp: make([]int, capacity),
	}
}

// IsTabu проверяет, является ли ход табуированным на текущей итерации.
func (t *tabuList) IsTabu(k uint64, iter int) bool {
	exp, ok := t.m[k]
	return ok && exp > iter
}

// Add добавляет новый табу-ход с указанием итерации истечения.
func (t *tabuList) Add(k uint64, expiry int) {
	// Удаление старого элемента из кольцевого буфера
	oldK := t.key[t.i]
	oldExp := t.exp[t.i]
	if oldK != 0 {
		if curExp, ok := t.m[oldK]; ok && curExp == oldExp {
			delete(t.m, oldK)
		}
	}

	t.key[t.i] = k
	t.exp[t.i] = expiry
	t.m[k] = expiry

	t.i++
	if t.i >= len(t.key) {
		t.i = 0
	}
}

// moveKey формирует уникальный ключ хода
func moveKey(a, from, to int) uint64 {
	return (uint64(uint32(a)) << 42) |
		(uint64(uint32(from)) << 21) |
		uint64(uint32(to))
}
