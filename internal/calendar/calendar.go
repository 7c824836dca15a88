package calendar

import (
	"errors"
	"fmt"
	"strings"
)

// Calendar - упорядоченный список свободных интервалов одного станка.
// Последний интервал всегда бесконечен.
type Calendar struct {
	periods []Period
}

// New возвращает полностью свободный календарь.
func New() *Calendar {
	c := &Calendar{periods: make([]Period, 0, 8)}
	c.Reset()
	return c
}

// FromPeriods строит календарь из готового списка интервалов и проверяет его.
func FromPeriods(periods []Period) (*Calendar, error) {
	c := &Calendar{periods: append([]Period(nil), periods...)}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset возвращает календарь в состояние "свободно всегда", сохраняя выделенную память.
func (c *Calendar) Reset() {
	c.periods = append(c.periods[:0], Period{Start: 0, Finish: Infinite})
}

// Periods возвращает текущие интервалы. Срез нельзя изменять.
func (c *Calendar) Periods() []Period { return c.periods }

func (c *Calendar) Len() int { return len(c.periods) }

// SearchFirstFeasibleStart ищет первый интервал, начиная с *cursor, в который помещается
// операция длительности dur со стартом не раньше proposed. Курсор только продвигается вперёд:
// в пределах одного декодирования proposed для операции не убывает.
func (c *Calendar) SearchFirstFeasibleStart(proposed, dur int, cursor *int) int {
	for i := *cursor; i < len(c.periods); i++ {
		if ep := c.periods[i].ProposeStart(proposed, dur); ep != Invalid {
			*cursor = i
			return ep
		}
	}
	// недостижимо: последний интервал бесконечен
	panic(fmt.Sprintf("calendar: no feasible start for proposed=%d dur=%d in %s", proposed, dur, c))
}

// Occupy вырезает [start, start+dur) из свободного времени. hint - стартовая позиция поиска.
// Занятие несвободного времени - ошибка программы, вызывает панику.
func (c *Calendar) Occupy(start, dur, hint int) {
	if len(c.periods) == 0 || !c.periods[len(c.periods)-1].IsInfinite() {
		panic("calendar: last period must be infinite")
	}

	i := hint
	if i < 0 {
		i = 0
	} else if i >= len(c.periods) {
		i = len(c.periods) - 1
	}
	for i > 0 && c.periods[i].Start > start {
		i--
	}
	for i+1 < len(c.periods) && c.periods[i+1].Start <= start {
		i++
	}

	finish := start + dur
	p := c.periods[i]
	if start < p.Start || finish > p.Finish {
		panic(fmt.Sprintf("calendar: interval [%d, %d) is not free in %s", start, finish, c))
	}

	switch {
	case p.Start == start && p.Finish == finish:
		c.periods = append(c.periods[:i], c.periods[i+1:]...)
	case p.Start == start:
		c.periods[i].Start = finish
	case p.Finish == finish:
		c.periods[i].Finish = start
	default:
		// разбиение интервала на два
		c.periods = append(c.periods, Period{})
		copy(c.periods[i+2:], c.periods[i+1:])
		c.periods[i+1] = Period{Start: finish, Finish: p.Finish}
		c.periods[i].Finish = start
	}
}

// Validate проверяет упорядоченность, непересечение и бесконечность последнего интервала.
func (c *Calendar) Validate() error {
	if len(c.periods) == 0 {
		return errors.New("calendar is empty")
	}
	for i, p := range c.periods {
		if p.Start < 0 || p.Start >= p.Finish {
			return fmt.Errorf("period %d %s is degenerate", i, p)
		}
		if i > 0 && c.periods[i-1].Finish > p.Start {
			return fmt.Errorf("period %d %s overlaps or precedes %s", i, p, c.periods[i-1])
		}
	}
	if !c.periods[len(c.periods)-1].IsInfinite() {
		return errors.New("last period must be infinite")
	}
	return nil
}

func (c *Calendar) String() string {
	var b strings.Builder
	for i, p := range c.periods {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.String())
	}
	return b.String()
}
