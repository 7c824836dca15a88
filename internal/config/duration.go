package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField разбирает длительность вида "30s"; пустая строка означает 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: некорректная длительность %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: длительность должна быть >= 0", path)
	}
	return d, nil
}
