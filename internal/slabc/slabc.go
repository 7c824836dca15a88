package slabc

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

// Solver - самообучающаяся пчелиная колония: параметры операторов выбирают
// epsilon-жадные агенты по дискретизированному качеству источника,
// терпение разведчика зависит от того же состояния.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log zerolog.Logger

	trace *Trace
}

// New возвращает новый SLABC-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
func New(cfg Config, rng *rand.Rand) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	return &Solver{Cfg: cfg, Rng: rng, Log: zerolog.Nop()}, nil
}

// Trace - трасса последнего запуска; nil, если KeepTrace выключен.
func (s *Solver) Trace() *Trace { return s.trace }

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

	c, err := newColony(s.Cfg, inst, s.Rng)
	if err != nil {
		return opt.Result{}, err
	}

	maxIter := s.Cfg.iterations(inst.NumJobs(), inst.NumMachines())
	log := s.Log.With().
		Str("solver", "slabc").
		Int("jobs", inst.NumJobs()).
		Int("machines", inst.NumMachines()).
		Logger()
	log.Info().
		Int("iterations", maxIter).
		Int("food_sources", s.Cfg.FoodSources).
		Int("states", s.Cfg.states()).
		Msg("run started")

	s.trace = nil
	if s.Cfg.KeepTrace {
		s.trace = newTrace(maxIter)
	}
	progress := rate.NewLimiter(rate.Every(time.Second), 1)

	c.init()
	for iter := 0; iter < maxIter; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			res := opt.FromEncoding(c.best, c.dec.Decodes(), iter, map[string]any{
				"stopped": "context",
				"scouted": c.scouted,
			})
			res.Duration = time.Since(start)
			return res, err
		}

		c.iterate()

		if s.trace != nil {
			s.trace.record(c)
		}
		if progress.Allow() {
			log.Debug().
				Int("iter", iter).
				Int("best", c.best.Makespan()).
				Int("scouted", c.scouted).
				Msg("progress")
		}
	}

	res := opt.FromEncoding(c.best, c.dec.Decodes(), maxIter, map[string]any{
		"food_sources": s.Cfg.FoodSources,
		"onlookers":    s.Cfg.Onlookers,
		"scouts":       s.Cfg.Scouts,
		"scouted":      c.scouted,
	})
	res.Duration = time.Since(start)
	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Dur("duration", res.Duration).
		Msg("run finished")
	if log.GetLevel() <= zerolog.DebugLevel {
		// календари станков после расписания лучшего решения
		c.dec.Decode(c.best.Clone(), true)
		c.dec.LogCalendars(log)
	}
	return res, nil
}

// colony - состояние одного запуска. Источники живут в фиксированных слотах;
// замена источника - обмен слота с рабочим кандидатом.
type colony struct {
	cfg  Config
	inst *fjsp.Instance
	rng  *rand.Rand
	dec  *decoder.Decoder

	sources    []*encoding.Encoding
	stagnation []int
	cand       *encoding.Encoding
	best       *encoding.Encoding

	pmpi       *bandit.Set[float64]
	nrp        *bandit.Set[int]
	pswap      *bandit.Set[float64]
	swapPhyb   *bandit.Set[float64]
	switchPhyb *bandit.Set[float64]

	noImprovement float64
	scouted       int
}

func newColony(cfg Config, inst *fjsp.Instance, rng *rand.Rand) (*colony, error) {
	dec, err := decoder.New(inst)
	if err != nil {
		return nil, err
	}

	states := cfg.states()
	c := &colony{
		cfg:           cfg,
		inst:          inst,
		rng:           rng,
		dec:           dec,
		noImprovement: -math.Abs(cfg.NoImprovementReward),
	}

	probSet := func(values []float64) (*bandit.Set[float64], error) {
		return bandit.NewSet(values, states, cfg.Eps, cfg.LearningRate, cfg.Discount)
	}
	if c.pmpi, err = probSet(cfg.Pmpi); err != nil {
		return nil, err
	}
	if c.nrp, err = bandit.NewSet(cfg.nrpValues(inst.NumJobs()), states, cfg.Eps, cfg.LearningRate, cfg.Discount); err != nil {
		return nil, err
	}
	if c.pswap, err = probSet(cfg.Pswap); err != nil {
		return nil, err
	}
	if c.swapPhyb, err = probSet(cfg.SwapPhyb); err != nil {
		return nil, err
	}
	if c.switchPhyb, err = probSet(cfg.SwitchPhyb); err != nil {
		return nil, err
	}
	return c, nil
}

// init заполняет все слоты разведчиками.
func (c *colony) init() {
	n := c.cfg.FoodSources
	c.sources = make([]*encoding.Encoding, n)
	c.stagnation = make([]int, n)
	c.cand = encoding.New(c.inst, c.rng, false, 1)
	for i := range c.sources {
		c.sources[i] = c.cand.Clone()
		c.scoutFS(i)
	}
}

func (c *colony) iterate() {
	for i := range c.sources {
		c.exploreFS(i)
	}
	for k := 0; k < c.cfg.Onlookers; k++ {
		c.exploreFS(c.tournament())
	}
	c.scout()
}

// tournament выбирает лучший из двух различных случайных источников.
func (c *colony) tournament() int {
	n := len(c.sources)
	a := c.rng.Intn(n)
	b := c.rng.Intn(n - 1)
	if b >= a {
		b++
	}
	if c.sources[b].Makespan() < c.sources[a].Makespan() {
		return b
	}
	return a
}

func (c *colony) scout() {
	for i := range c.stagnation {
		if c.stagnation[i] >= c.cfg.LimitLow && c.stagnation[i] >= c.limit(c.score(c.sources[i].Makespan())) {
			c.scoutFS(i)
			c.scouted++
		}
		c.stagnation[i]++
	}
}

// scoutFS заменяет источник лучшим из Scouts случайных решений.
func (c *colony) scoutFS(i int) {
	c.regenerate(c.sources[i])
	c.observe(c.sources[i])
	for k := 1; k < c.cfg.Scouts; k++ {
		c.regenerate(c.cand)
		c.cand = c.offer(i, c.cand)
	}
	c.stagnation[i] = -1
}

func (c *colony) regenerate(e *encoding.Encoding) {
	e.Randomize(c.rng, true, c.cfg.PFreeInit)
	c.dec.Decode(e, true)
}

// chosen - индексы действий агентов за один шаг, -1 для не участвовавших.
type chosen struct {
	pmpi, nrp, pswap, swapPhyb, switchPhyb int
}

// exploreFS - шаг рабочей пчелы над источником i.
func (c *colony) exploreFS(i int) {
	orig := c.sources[i].Makespan()
	state := c.state(orig)

	cand := c.cand
	cand.CopyFrom(c.sources[i])

	act := chosen{-1, -1, -1, -1, -1}
	var pmpi float64
	act.pmpi, pmpi = c.pmpi.Choose(state, c.rng)
	if c.rng.Float64() < pmpi {
		var nrp int
		act.nrp, nrp = c.nrp.Choose(state, c.rng)
		cand.PermuteByOther(c.sources[c.other(i)], nrp, c.rng)
	} else {
		var pswap, phyb float64
		act.pswap, pswap = c.pswap.Choose(state, c.rng)
		if c.rng.Float64() < pswap {
			act.swapPhyb, phyb = c.swapPhyb.Choose(state, c.rng)
			cand.ShiftJobsAndRandomizeResources(phyb, c.rng)
		} else {
			act.switchPhyb, phyb = c.switchPhyb.Choose(state, c.rng)
			cand.MutateResource(phyb, c.rng)
		}
	}

	ms := c.dec.Decode(cand, true)
	reward := c.reward(orig, ms)
	c.cand = c.offer(i, cand)
	next := c.state(c.sources[i].Makespan())

	c.pmpi.Reward(state, act.pmpi, next, reward)
	c.nrp.Reward(state, act.nrp, next, reward)
	c.pswap.Reward(state, act.pswap, next, reward)
	c.swapPhyb.Reward(state, act.swapPhyb, next, reward)
	c.switchPhyb.Reward(state, act.switchPhyb, next, reward)
}

// other - случайный источник, отличный от i.
func (c *colony) other(i int) int {
	k := c.rng.Intn(len(c.sources) - 1)
	if k >= i {
		k++
	}
	return k
}

// offer ставит e в слот i при строгом улучшении и возвращает вытесненное решение,
// иначе возвращает e без изменений.
func (c *colony) offer(i int, e *encoding.Encoding) *encoding.Encoding {
	if e.Makespan() >= c.sources[i].Makespan() {
		return e
	}
	old := c.sources[i]
	c.sources[i] = e
	c.stagnation[i] = -1
	c.observe(e)
	return old
}

func (c *colony) observe(e *encoding.Encoding) {
	if c.best == nil {
		c.best = e.Clone()
		return
	}
	if e.Makespan() < c.best.Makespan() {
		c.best.CopyFrom(e)
	}
}

func (c *colony) reward(orig, ms int) float64 {
	if ms < orig {
		return float64(orig - ms)
	}
	return c.noImprovement
}

// score - относительное отставание от лучшего известного makespan.
func (c *colony) score(makespan int) float64 {
	return math.Abs(float64(makespan-c.best.Makespan())) / float64(makespan)
}

// state - номер первого порога, не меньшего score, либо последнее состояние.
func (c *colony) state(makespan int) int {
	s := c.score(makespan)
	for i, t := range c.cfg.Thresholds {
		if t >= s {
			return i
		}
	}
	return len(c.cfg.Thresholds)
}

// limit убывает от LimitUp при score=0 до LimitLow при score=1.
func (c *colony) limit(score float64) int {
	up := float64(c.cfg.LimitUp)
	return int(up * math.Pow(up/float64(c.cfg.LimitLow), -score))
}

func (c *colony) policy(state int) Policy {
	return Policy{
		Pmpi:       c.pmpi.BestValue(state),
		Nrp:        c.nrp.BestValue(state),
		Pswap:      c.pswap.BestValue(state),
		SwapPhyb:   c.swapPhyb.BestValue(state),
		SwitchPhyb: c.switchPhyb.BestValue(state),
	}
}
