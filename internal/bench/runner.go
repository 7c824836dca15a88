package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"flexShop/internal/fjsp"
	"flexShop/internal/opt"
)

// Algorithm - именованная фабрика солверов. Каждый запуск получает свой солвер,
// собственный генератор по seed и логгер с идентификатором запуска.
type Algorithm struct {
	Name    string
	Factory func(seed int64, log zerolog.Logger) (opt.Optimizer, error)
}

// Case - конфигурация генерации экземпляра задачи.
type Case struct {
	Generator    fjsp.GeneratorConfig
	InstanceSeed int64
}

func (c Case) Instance() (*fjsp.Instance, error) {
	if err := c.Generator.Validate(); err != nil {
		return nil, err
	}
	return fjsp.RandomInstance(c.Generator, randForSeed(c.InstanceSeed)), nil
}

// RunResult - итог одного запуска.
type RunResult struct {
	ID          uuid.UUID
	Algo        string
	Index       int
	Seed        int64
	Makespan    int
	Evaluations int
	Iterations  int
	Duration    time.Duration
	// TimedOut - запуск остановлен по PerRunTimeout, результат частичный
	TimedOut bool
}

type Record struct {
	Algo     string
	Jobs     int
	Machines int
	Runs     int

	TimeBestMs float64
	TimeMeanMs float64
	TimeStdMs  float64

	MakespanBest   int
	MakespanWorst  int
	MakespanMean   float64
	MakespanMedian float64
	MakespanStd    float64

	// TimedOut - число запусков, остановленных по таймауту
	TimedOut int

	EvaluationsMean float64

	Results []RunResult
}

type Runner struct {
	Runs          int
	BaseSeed      int64
	PerRunTimeout time.Duration // 0 = no timeout
	// Workers - число горутин, забирающих запуски из общей очереди; <= 0 - GOMAXPROCS
	Workers int
	Log     zerolog.Logger
}

func (r Runner) workers() int {
	w := r.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return min(w, r.Runs)
}

func (r Runner) RunCase(ctx context.Context, c Case, algo Algorithm) (Record, error) {
	if r.Runs <= 0 {
		return Record{}, fmt.Errorf("количество запусков должно быть > 0 (получено %d)", r.Runs)
	}
	inst, err := c.Instance()
	if err != nil {
		return Record{}, err
	}

	results := make([]RunResult, r.Runs)
	errs := make([]error, r.Runs)

	// Очередь запусков: каждая горутина атомарно забирает следующий индекс.
	// Слоты results/errs пишет только забравшая их горутина.
	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < r.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= r.Runs {
					return
				}
				results[i], errs[i] = r.runOne(ctx, inst, algo, i)
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return Record{}, err
	}

	makespans := make([]int, 0, r.Runs)
	timesMs := make([]float64, 0, r.Runs)
	evals := make([]int, 0, r.Runs)
	timedOut := 0
	for _, res := range results {
		makespans = append(makespans, res.Makespan)
		timesMs = append(timesMs, float64(res.Duration.Microseconds())/1000.0)
		evals = append(evals, res.Evaluations)
		if res.TimedOut {
			timedOut++
		}
	}

	msStats := Calc(makespans)
	tStats := Calc(timesMs)

	return Record{
		Algo:     algo.Name,
		Jobs:     inst.NumJobs(),
		Machines: inst.NumMachines(),
		Runs:     r.Runs,

		TimeBestMs: tStats.Best,
		TimeMeanMs: tStats.Mean,
		TimeStdMs:  tStats.Std,

		MakespanBest:   msStats.Best,
		MakespanWorst:  msStats.Worst,
		MakespanMean:   msStats.Mean,
		MakespanMedian: msStats.Median,
		MakespanStd:    msStats.Std,

		TimedOut: timedOut,

		EvaluationsMean: Calc(evals).Mean,

		Results: results,
	}, nil
}

func (r Runner) runOne(ctx context.Context, inst *fjsp.Instance, algo Algorithm, i int) (RunResult, error) {
	id := uuid.New()
	seed := r.BaseSeed + int64(i)
	log := r.Log.With().
		Str("run_id", id.String()).
		Str("algo", algo.Name).
		Int("run", i).
		Int64("seed", seed).
		Logger()

	op, err := algo.Factory(seed, log)
	if err != nil {
		return RunResult{}, fmt.Errorf("run %d: factory: %w", i, err)
	}

	runCtx := ctx
	cancel := func() {}
	if r.PerRunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.PerRunTimeout)
	}
	start := time.Now()
	res, err := op.Solve(runCtx, inst)
	dur := time.Since(start)
	cancel()

	// Истёкший таймаут запуска даёт частичный результат; отмена внешнего контекста - ошибка
	timedOut := false
	if err != nil {
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return RunResult{}, fmt.Errorf("run %d: solve error: %w", i, err)
		}
		timedOut = true
	}

	if lb := inst.LowerBound(); res.Makespan < lb {
		return RunResult{}, fmt.Errorf("run %d: makespan %d below lower bound %d", i, res.Makespan, lb)
	}
	enc, err := res.Encoding(inst)
	if err != nil {
		return RunResult{}, fmt.Errorf("run %d: invalid result: %w", i, err)
	}
	if err := enc.ValidateSchedule(); err != nil {
		return RunResult{}, fmt.Errorf("run %d: infeasible schedule: %w", i, err)
	}
	if enc.Makespan() != res.Makespan {
		return RunResult{}, fmt.Errorf("run %d: reported makespan %d, schedule ends at %d", i, res.Makespan, enc.Makespan())
	}

	log.Info().
		Int("makespan", res.Makespan).
		Int("evaluations", res.Evaluations).
		Dur("duration", dur).
		Bool("timed_out", timedOut).
		Msg("run completed")

	return RunResult{
		ID:          id,
		Algo:        algo.Name,
		Index:       i,
		Seed:        seed,
		Makespan:    res.Makespan,
		Evaluations: res.Evaluations,
		Iterations:  res.Iterations,
		Duration:    dur,
		TimedOut:    timedOut,
	}, nil
}

func WriteCSV(path string, records []Record) error {
	header := []string{
		"algo", "jobs", "machines", "runs",
		"time_best_ms", "time_mean_ms", "time_std_ms",
		"makespan_best", "makespan_worst", "makespan_mean", "makespan_median", "makespan_std",
		"evaluations_mean", "timed_out",
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Algo,
			itoa(r.Jobs),
			itoa(r.Machines),
			itoa(r.Runs),

			ftoa(r.TimeBestMs),
			ftoa(r.TimeMeanMs),
			ftoa(r.TimeStdMs),

			itoa(r.MakespanBest),
			itoa(r.MakespanWorst),
			ftoa(r.MakespanMean),
			ftoa(r.MakespanMedian),
			ftoa(r.MakespanStd),

			ftoa(r.EvaluationsMean),
			itoa(r.TimedOut),
		})
	}
	return writeRows(path, header, rows)
}

// WriteRunsCSV пишет по строке на каждый запуск всех записей.
func WriteRunsCSV(path string, records []Record) error {
	header := []string{
		"run_id", "algo", "jobs", "machines", "run", "seed",
		"makespan", "evaluations", "iterations", "time_ms", "timed_out",
	}
	var rows [][]string
	for _, r := range records {
		for _, res := range r.Results {
			rows = append(rows, []string{
				res.ID.String(),
				res.Algo,
				itoa(r.Jobs),
				itoa(r.Machines),
				itoa(res.Index),
				i64toa(res.Seed),
				itoa(res.Makespan),
				itoa(res.Evaluations),
				itoa(res.Iterations),
				ftoa(float64(res.Duration.Microseconds()) / 1000.0),
				btoa(res.TimedOut),
			})
		}
	}
	return writeRows(path, header, rows)
}

func writeRows(path string, header []string, rows [][]string) error {
	if d := dirOf(path); d != "" {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	err = w.Write(header)
	if err == nil {
		err = w.WriteAll(rows)
	}
	return errors.Join(err, f.Close())
}
