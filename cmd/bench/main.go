package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"flexShop/internal/abc"
	"flexShop/internal/aco"
	"flexShop/internal/bench"
	"flexShop/internal/config"
	"flexShop/internal/ga"
	"flexShop/internal/logging"
	"flexShop/internal/opt"
	"flexShop/internal/pso"
	"flexShop/internal/sa"
	"flexShop/internal/slabc"
	"flexShop/internal/ts"
)

type factory = func(seed int64, log zerolog.Logger) (opt.Optimizer, error)

// Фабрики

func newSLABCFactory(cfg slabc.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := slabc.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newABCFactory(cfg abc.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := abc.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newSAFactory(cfg sa.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := sa.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newTSFactory(cfg ts.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := ts.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newGAFactory(cfg ga.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := ga.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newSLGAFactory(cfg ga.LearningConfig) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := ga.NewSelfLearning(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newACOFactory(cfg aco.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := aco.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func newPSOFactory(cfg pso.Config) factory {
	return func(seed int64, log zerolog.Logger) (opt.Optimizer, error) {
		solver, err := pso.New(cfg, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		solver.Log = log
		return solver, nil
	}
}

func main() {
	// CLI флаги: файл эксперимента и переопределения секции bench
	var (
		cfgPath      = flag.String("config", "", "файл эксперимента (YAML или JSON); пусто - значения по умолчанию")
		out          = flag.String("out", "", "путь к выходному CSV-файлу со сводкой")
		runsOut      = flag.String("runs_out", "", "путь к CSV-файлу с результатами отдельных запусков (пусто - не писать)")
		pairs        = flag.String("pairs", "", "конфигурации: количество работ Х количество станков (через запятую), пример: 10x5,20x10")
		algos        = flag.String("algos", "", "список алгоритмов: SLABC, ABC, SA, TS, GA, SLGA, ACO, PSO (через запятую)")
		runs         = flag.Int("runs", 0, "количество запусков каждого алгоритма (с разными сидами)")
		baseSeed     = flag.Int64("seed", 0, "базовый сид для запусков алгоритмов")
		instanceSeed = flag.Int64("instance_seed", 0, "базовый сид для генерации экземпляров задачи (фиксирован для конфигурации)")
		workers      = flag.Int("workers", 0, "число параллельных запусков; 0 - GOMAXPROCS")
		perRunTO     = flag.String("per_run_timeout", "", "таймаут одного запуска, например 30s; пусто - без ограничения")
		logLevel     = flag.String("log_level", "", "уровень логов: trace, debug, info, warn, error")
		logFormat    = flag.String("log_format", "", "формат логов: console | json")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка конфигурации:", err)
			os.Exit(2)
		}
	}

	// Явно заданные флаги важнее файла
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Bench.Out = *out
		case "runs_out":
			cfg.Bench.RunsOut = *runsOut
		case "pairs":
			cfg.Bench.Pairs = splitCSV(*pairs)
		case "algos":
			cfg.Bench.Algos = splitCSV(*algos)
		case "runs":
			cfg.Bench.Runs = *runs
		case "seed":
			cfg.Bench.Seed = *baseSeed
		case "instance_seed":
			cfg.Bench.InstanceSeed = *instanceSeed
		case "workers":
			cfg.Bench.Workers = *workers
		case "per_run_timeout":
			cfg.Bench.PerRunTimeout = *perRunTO
		case "log_level":
			cfg.Log.Level = *logLevel
		case "log_format":
			cfg.Log.Format = *logFormat
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Конфликт в конфигурации:", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка настройки логов:", err)
		os.Exit(2)
	}

	// Validate уже проверил пары и таймаут
	cases, _ := cfg.Bench.Cases()
	timeout, _ := cfg.Bench.Timeout()

	available := map[string]bench.Algorithm{
		config.AlgoSLABC: {Name: config.AlgoSLABC, Factory: newSLABCFactory(cfg.SLABC)},
		config.AlgoABC:   {Name: config.AlgoABC, Factory: newABCFactory(cfg.ABC)},
		config.AlgoSA:    {Name: config.AlgoSA, Factory: newSAFactory(cfg.SA)},
		config.AlgoTS:    {Name: config.AlgoTS, Factory: newTSFactory(cfg.TS)},
		config.AlgoGA:    {Name: config.AlgoGA, Factory: newGAFactory(cfg.GA)},
		config.AlgoSLGA:  {Name: config.AlgoSLGA, Factory: newSLGAFactory(cfg.SLGA)},
		config.AlgoACO:   {Name: config.AlgoACO, Factory: newACOFactory(cfg.ACO)},
		config.AlgoPSO:   {Name: config.AlgoPSO, Factory: newPSOFactory(cfg.PSO)},
	}
	selected := make([]bench.Algorithm, 0, len(cfg.Bench.Algos))
	for _, a := range cfg.Bench.Algos {
		selected = append(selected, available[a])
	}

	runner := bench.Runner{
		Runs:          cfg.Bench.Runs,
		BaseSeed:      cfg.Bench.Seed,
		PerRunTimeout: timeout,
		Workers:       cfg.Bench.Workers,
		Log:           log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var records []bench.Record
	for _, c := range cases {
		for _, a := range selected {
			log.Info().
				Str("algo", a.Name).
				Int("jobs", c.Generator.Jobs).
				Int("machines", c.Generator.Machines).
				Int("runs", runner.Runs).
				Msg("case started")

			rec, err := runner.RunCase(ctx, c, a)
			if err != nil {
				log.Error().Err(err).Str("algo", a.Name).Msg("case failed")
				stop()
				os.Exit(1)
			}
			records = append(records, rec)

			log.Info().
				Str("algo", a.Name).
				Int("jobs", rec.Jobs).
				Int("machines", rec.Machines).
				Int("makespan_best", rec.MakespanBest).
				Float64("makespan_mean", rec.MakespanMean).
				Float64("makespan_std", rec.MakespanStd).
				Float64("time_mean_ms", rec.TimeMeanMs).
				Float64("time_std_ms", rec.TimeStdMs).
				Msg("case finished")
		}
	}

	if err := bench.WriteCSV(cfg.Bench.Out, records); err != nil {
		log.Error().Err(err).Str("path", cfg.Bench.Out).Msg("write csv")
		os.Exit(1)
	}
	log.Info().Str("path", cfg.Bench.Out).Msg("saved")

	if cfg.Bench.RunsOut != "" {
		if err := bench.WriteRunsCSV(cfg.Bench.RunsOut, records); err != nil {
			log.Error().Err(err).Str("path", cfg.Bench.RunsOut).Msg("write runs csv")
			os.Exit(1)
		}
		log.Info().Str("path", cfg.Bench.RunsOut).Msg("saved")
	}
}

// helpers

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
