package ga

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"flexShop/internal/bandit"
	"flexShop/internal/decoder"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
	"flexShop/internal/opt"
)

// SelfLearning - генетический алгоритм, в котором вероятности кроссовера и мутации
// на каждом поколении выбирают два epsilon-жадных агента.
type SelfLearning struct {
	Cfg LearningConfig
	Rng *rand.Rand
	Log zerolog.Logger
}

func NewSelfLearning(cfg LearningConfig, rng *rand.Rand) (*SelfLearning, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	return &SelfLearning{Cfg: cfg, Rng: rng, Log: zerolog.Nop()}, nil
}

// popStats - статистика makespan поколения.
type popStats struct {
	sum    int
	max    int
	spread float64 // сумма |makespan - среднее|
}

func statsOf(pop []*encoding.Encoding) popStats {
	var st popStats
	for _, e := range pop {
		st.sum += e.Makespan()
		if e.Makespan() > st.max {
			st.max = e.Makespan()
		}
	}
	avg := float64(st.sum) / float64(len(pop))
	for _, e := range pop {
		st.spread += math.Abs(float64(e.Makespan()) - avg)
	}
	return st
}

func relative(v, base float64) float64 {
	if base == 0 {
		return 1
	}
	return v / base
}

// learner ведёт состояние популяции и агентов pc/pm. Награда за действие известна
// только после декодирования, поэтому агенты обновляются с задержкой на поколение.
type learner struct {
	cfg   LearningConfig
	first popStats
	pc    *bandit.Set[float64]
	pm    *bandit.Set[float64]

	state, prevState       int
	pcAction, prevPcAction int
	pmAction, prevPmAction int

	rewardCross, prevRewardCross float64
	rewardMut, prevRewardMut     float64

	sarsaUpdates int
	qlUpdates    int
}

func newLearner(cfg LearningConfig, first popStats) (*learner, error) {
	pc, err := bandit.NewSet(cfg.CrossoverRates, cfg.states(), cfg.Eps, cfg.LearningRate, cfg.Discount)
	if err != nil {
		return nil, err
	}
	pm, err := bandit.NewSet(cfg.MutationRates, cfg.states(), cfg.Eps, cfg.LearningRate, cfg.Discount)
	if err != nil {
		return nil, err
	}
	return &learner{
		cfg:          cfg,
		first:        first,
		pc:           pc,
		pm:           pm,
		pcAction:     -1,
		prevPcAction: -1,
		pmAction:     -1,
		prevPmAction: -1,
	}, nil
}

func (l *learner) score(st popStats) float64 {
	return l.cfg.WeightSum*relative(float64(st.sum), float64(l.first.sum)) +
		l.cfg.WeightSpread*relative(st.spread, l.first.spread) +
		l.cfg.WeightMax*relative(float64(st.max), float64(l.first.max))
}

// stateOf - первый порог, не меньший оценки; иначе последнее состояние.
func (l *learner) stateOf(score float64) int {
	for i, t := range l.cfg.Thresholds {
		if t >= score {
			return i
		}
	}
	return len(l.cfg.Thresholds)
}

// choose переходит в состояние текущего поколения и выбирает pc и pm.
func (l *learner) choose(st popStats, rng *rand.Rand) (pc, pm float64) {
	l.prevState = l.state
	l.prevPcAction, l.prevPmAction = l.pcAction, l.pmAction
	l.state = l.stateOf(l.score(st))
	l.pcAction, pc = l.pc.Choose(l.state, rng)
	l.pmAction, pm = l.pm.Choose(l.state, rng)
	return pc, pm
}

// observe: награда кроссовера - относительное изменение максимума,
// мутации - относительное изменение суммы makespan.
func (l *learner) observe(prev, cur popStats) {
	l.prevRewardCross, l.prevRewardMut = l.rewardCross, l.rewardMut
	l.rewardCross = float64(cur.max-prev.max) / float64(prev.max)
	l.rewardMut = float64(cur.sum-prev.sum) / float64(prev.sum)
}

// update награждает действия предыдущего поколения. Первые SARSAGenerations
// поколений используют SARSA, затем Q-learning.
func (l *learner) update(gen int) {
	if l.prevPcAction < 0 {
		return
	}
	if gen < l.cfg.SARSAGenerations() {
		l.pc.RewardSARSA(l.prevState, l.prevPcAction, l.state, l.pcAction, l.prevRewardCross)
		l.pm.RewardSARSA(l.prevState, l.prevPmAction, l.state, l.pmAction, l.prevRewardMut)
		l.sarsaUpdates++
		return
	}
	l.pc.Reward(l.prevState, l.prevPcAction, l.state, l.prevRewardCross)
	l.pm.Reward(l.prevState, l.prevPmAction, l.state, l.prevRewardMut)
	l.qlUpdates++
}

// Solve: поколение - отбор бинарным турниром из популяции и копии лучшего,
// попарный кроссовер с вероятностью pc и обмен станка у каждого потомка с вероятностью pm.
func (s *SelfLearning) Solve(ctx context.Context, inst *fjsp.Instance) (opt.Result, error) {
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

	popSize := s.Cfg.Population
	generations := s.Cfg.generations(inst.NumJobs(), inst.NumMachines())
	log := s.Log.With().
		Str("solver", "slga").
		Int("jobs", inst.NumJobs()).
		Int("machines", inst.NumMachines()).
		Logger()
	log.Info().
		Int("population", popSize).
		Int("generations", generations).
		Int("sarsa_generations", s.Cfg.SARSAGenerations()).
		Msg("run started")

	pop := make([]*encoding.Encoding, popSize)
	next := make([]*encoding.Encoding, popSize)
	for i := range pop {
		pop[i] = encoding.New(inst, s.Rng, true, s.Cfg.PFreeInit)
		dec.Decode(pop[i], true)
		next[i] = pop[i].Clone()
	}
	best := pop[0].Clone()
	for _, e := range pop[1:] {
		if e.Makespan() < best.Makespan() {
			best.CopyFrom(e)
		}
	}

	stats := statsOf(pop)
	l, err := newLearner(s.Cfg, stats)
	if err != nil {
		return opt.Result{}, err
	}

	// Пул отбора: популяция и копия лучшего найденного решения
	pool := make([]*encoding.Encoding, popSize+1)
	elite := best.Clone()
	progress := rate.NewLimiter(rate.Every(time.Second), 1)
	meta := func() map[string]any {
		return map[string]any{
			"population":    popSize,
			"generations":   generations,
			"sarsa_updates": l.sarsaUpdates,
			"ql_updates":    l.qlUpdates,
		}
	}

	for gen := 0; gen < generations; gen++ {
		if err := ctx.Err(); err != nil {
			m := meta()
			m["stopped"] = "context"
			res := opt.FromEncoding(best, dec.Decodes(), gen, m)
			res.Duration = time.Since(start)
			return res, err
		}

		pc, pm := l.choose(stats, s.Rng)

		elite.CopyFrom(best)
		copy(pool, pop)
		pool[popSize] = elite
		for i := range next {
			next[i].CopyFrom(pool[binaryTournament(pool, s.Rng)])
		}
		pop, next = next, pop

		for i := 0; i+1 < popSize; i += 2 {
			if s.Rng.Float64() < pc {
				pop[i].PermuteWithOther(pop[i+1], s.Rng)
			}
			if s.Rng.Float64() < pm {
				pop[i].SwapResource(s.Rng)
			}
			if s.Rng.Float64() < pm {
				pop[i+1].SwapResource(s.Rng)
			}
		}

		for _, e := range pop {
			if !e.IsDecoded() {
				dec.Decode(e, true)
			}
			if e.Makespan() < best.Makespan() {
				best.CopyFrom(e)
			}
		}

		prev := stats
		stats = statsOf(pop)
		l.observe(prev, stats)
		l.update(gen)

		if progress.Allow() {
			log.Debug().
				Int("gen", gen).
				Int("best", best.Makespan()).
				Int("state", l.state).
				Float64("pc", pc).
				Float64("pm", pm).
				Msg("progress")
		}
	}

	res := opt.FromEncoding(best, dec.Decodes(), generations, meta())
	res.Duration = time.Since(start)
	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Int("sarsa_updates", l.sarsaUpdates).
		Int("ql_updates", l.qlUpdates).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}
