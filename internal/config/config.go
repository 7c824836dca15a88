// Package config читает файл эксперимента (YAML или JSON) для cmd/bench.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"flexShop/internal/abc"
	"flexShop/internal/aco"
	"flexShop/internal/bench"
	"flexShop/internal/fjsp"
	"flexShop/internal/ga"
	"flexShop/internal/logging"
	"flexShop/internal/pso"
	"flexShop/internal/sa"
	"flexShop/internal/slabc"
	"flexShop/internal/ts"
)

var ErrInvalidConfig = errors.New("invalid experiment config")

// Имена алгоритмов, которые понимает cmd/bench.
const (
	AlgoSLABC = "SLABC"
	AlgoABC   = "ABC"
	AlgoSA    = "SA"
	AlgoTS    = "TS"
	AlgoGA    = "GA"
	AlgoSLGA  = "SLGA"
	AlgoACO   = "ACO"
	AlgoPSO   = "PSO"
)

var KnownAlgos = []string{AlgoSLABC, AlgoABC, AlgoSA, AlgoTS, AlgoGA, AlgoSLGA, AlgoACO, AlgoPSO}

type Config struct {
	Log   logging.Config `json:"log"`
	Bench Bench          `json:"bench"`

	SLABC slabc.Config      `json:"slabc"`
	ABC   abc.Config        `json:"abc"`
	SA    sa.Config         `json:"sa"`
	TS    ts.Config         `json:"ts"`
	GA    ga.Config         `json:"ga"`
	SLGA  ga.LearningConfig `json:"slga"`
	ACO   aco.Config        `json:"aco"`
	PSO   pso.Config        `json:"pso"`
}

// Bench - параметры прогона.
type Bench struct {
	// Pairs - конфигурации экземпляров вида "10x5" (работы x станки)
	Pairs []string `json:"pairs"`
	Algos []string `json:"algos"`

	Runs         int   `json:"runs"`
	Seed         int64 `json:"seed"`
	InstanceSeed int64 `json:"instance_seed"`
	Workers      int   `json:"workers"`

	// PerRunTimeout - длительность вида "30s"; пусто - без ограничения
	PerRunTimeout string `json:"per_run_timeout"`

	Out     string `json:"out"`
	RunsOut string `json:"runs_out"`

	// Переопределения генератора экземпляров; 0 - значение по умолчанию
	MaxFlex int `json:"max_flex"`
	MinTime int `json:"min_time"`
	MaxTime int `json:"max_time"`
}

func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		Bench: Bench{
			Pairs:        []string{"10x5", "15x8", "20x10"},
			Algos:        slices.Clone(KnownAlgos),
			Runs:         30,
			Seed:         1000,
			InstanceSeed: 777,
			Out:          "artifacts/results.csv",
		},
		SLABC: slabc.DefaultConfig(),
		ABC:   abc.DefaultConfig(),
		SA:    sa.DefaultConfig(),
		TS:    ts.DefaultConfig(),
		GA:    ga.DefaultConfig(),
		SLGA:  ga.DefaultLearningConfig(),
		ACO:   aco.DefaultConfig(),
		PSO:   pso.DefaultConfig(),
	}
}

// Load читает файл поверх значений по умолчанию и проверяет результат.
// Неизвестные ключи считаются ошибкой.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает содержимое файла; формат определяется по расширению path.
func Parse(path string, data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	j, err := toJSON(path, data)
	if err != nil {
		return Config{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(j))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Config{}, fmt.Errorf("%w: лишние данные после конфигурации", ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Bench.Validate(); err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	if err := c.SLABC.Validate(); err != nil {
		return fmt.Errorf("slabc: %w", err)
	}
	if err := c.ABC.Validate(); err != nil {
		return fmt.Errorf("abc: %w", err)
	}
	if err := c.SA.Validate(); err != nil {
		return fmt.Errorf("sa: %w", err)
	}
	if err := c.TS.Validate(); err != nil {
		return fmt.Errorf("ts: %w", err)
	}
	if err := c.GA.Validate(); err != nil {
		return fmt.Errorf("ga: %w", err)
	}
	if err := c.SLGA.Validate(); err != nil {
		return fmt.Errorf("slga: %w", err)
	}
	if err := c.ACO.Validate(); err != nil {
		return fmt.Errorf("aco: %w", err)
	}
	if err := c.PSO.Validate(); err != nil {
		return fmt.Errorf("pso: %w", err)
	}
	return nil
}

func (b Bench) Validate() error {
	if b.Runs <= 0 {
		return fmt.Errorf("%w: runs должно быть > 0 (получено %d)", ErrInvalidConfig, b.Runs)
	}
	if b.Workers < 0 {
		return fmt.Errorf("%w: workers должно быть >= 0 (получено %d)", ErrInvalidConfig, b.Workers)
	}
	if len(b.Algos) == 0 {
		return fmt.Errorf("%w: список алгоритмов пуст", ErrInvalidConfig)
	}
	for _, a := range b.Algos {
		if !slices.Contains(KnownAlgos, a) {
			return fmt.Errorf("%w: неизвестный алгоритм %q; доступные: %v", ErrInvalidConfig, a, KnownAlgos)
		}
	}
	if strings.TrimSpace(b.Out) == "" {
		return fmt.Errorf("%w: путь out пуст", ErrInvalidConfig)
	}
	if _, err := b.Timeout(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := b.Cases(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (b Bench) Timeout() (time.Duration, error) {
	return ParseDurationField("bench.per_run_timeout", b.PerRunTimeout)
}

// Cases строит конфигурации экземпляров по Pairs. Сид экземпляра зависит
// от InstanceSeed, позиции пары и её размеров.
func (b Bench) Cases() ([]bench.Case, error) {
	if len(b.Pairs) == 0 {
		return nil, fmt.Errorf("список пар пуст")
	}
	cases := make([]bench.Case, 0, len(b.Pairs))
	for i, p := range b.Pairs {
		jobs, machines, err := ParsePair(p)
		if err != nil {
			return nil, err
		}

		gen := fjsp.DefaultGeneratorConfig(jobs, machines)
		if b.MaxFlex > 0 {
			gen.MaxFlex = min(b.MaxFlex, machines)
		}
		if b.MinTime > 0 {
			gen.MinTime = b.MinTime
		}
		if b.MaxTime > 0 {
			gen.MaxTime = b.MaxTime
		}
		if err := gen.Validate(); err != nil {
			return nil, fmt.Errorf("пара %q: %w", p, err)
		}

		cases = append(cases, bench.Case{
			Generator:    gen,
			InstanceSeed: b.InstanceSeed + int64(i)*10_000 + int64(jobs)*100 + int64(machines),
		})
	}
	return cases, nil
}

// ParsePair разбирает строку вида "50x10".
func ParsePair(p string) (jobs, machines int, err error) {
	jm := strings.Split(strings.TrimSpace(p), "x")
	if len(jm) != 2 {
		return 0, 0, fmt.Errorf("пара %q невалидной схемы, пример: 50x10", p)
	}
	jobs, err = strconv.Atoi(strings.TrimSpace(jm[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("пара %q: ошибка парсинга количества работ: %w", p, err)
	}
	machines, err = strconv.Atoi(strings.TrimSpace(jm[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("пара %q: ошибка парсинга количества станков: %w", p, err)
	}
	if jobs <= 0 || machines <= 0 {
		return 0, 0, fmt.Errorf("пара %q: количество работ и станков должно быть > 0", p)
	}
	return jobs, machines, nil
}
