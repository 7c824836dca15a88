package calendar

import (
	"fmt"
	"math"
)

const (
	// Infinite - конец последнего свободного интервала ("свободно навсегда").
	Infinite = math.MaxInt
	// Invalid - признак того, что операция не помещается в интервал.
	Invalid = -1
)

// Period - свободный интервал станка [Start, Finish].
type Period struct {
	Start  int
	Finish int
}

func (p Period) Duration() int { return p.Finish - p.Start }

func (p Period) IsInfinite() bool { return p.Finish == Infinite }

// ProposeStart возвращает самый ранний старт операции длительности dur не раньше proposed
// внутри интервала или Invalid, если операция не помещается.
func (p Period) ProposeStart(proposed, dur int) int {
	if proposed+dur > p.Finish || dur > p.Duration() {
		return Invalid
	}
	if proposed > p.Start {
		return proposed
	}
	return p.Start
}

func (p Period) String() string {
	if p.IsInfinite() {
		return fmt.Sprintf("[%d - inf]", p.Start)
	}
	return fmt.Sprintf("[%d - %d]", p.Start, p.Finish)
}
