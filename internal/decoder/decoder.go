package decoder

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"flexShop/internal/calendar"
	"flexShop/internal/encoding"
	"flexShop/internal/fjsp"
)

// Decoder строит расписание по решению: работы вставляются в календари станков
// в порядке решения, старт каждой работы ищется итерацией до неподвижной точки.
// Буферы переиспользуются между вызовами, поэтому Decoder не безопасен для
// конкурентного использования: одна горутина - один декодер.
type Decoder struct {
	inst *fjsp.Instance

	calendars   []calendar.Calendar
	entryPoints []int

	// рабочие буферы одной работы, индексируются операцией
	epop        []int
	stiffCursor []int
	ffeps       [][]int
	flexCursor  [][]int
	chosen      []int

	decodes int
}

func New(inst *fjsp.Instance) (*Decoder, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	maxOps := 0
	for j := 0; j < inst.NumJobs(); j++ {
		if n := inst.NumOps(j); n > maxOps {
			maxOps = n
		}
	}

	d := &Decoder{
		inst:        inst,
		calendars:   make([]calendar.Calendar, inst.NumMachines()),
		entryPoints: make([]int, inst.NumJobs()),
		epop:        make([]int, maxOps),
		stiffCursor: make([]int, maxOps),
		ffeps:       make([][]int, maxOps),
		flexCursor:  make([][]int, maxOps),
		chosen:      make([]int, maxOps),
	}
	d.resetCalendars()
	return d, nil
}

// ErrInstanceMismatch - решение построено для другого экземпляра.
var ErrInstanceMismatch = errors.New("encoding belongs to a different instance")

// Decode сбрасывает календари, вставляет все работы в порядке решения и возвращает makespan.
// При commit=true выбранные декодером станки записываются в решение; иначе решение
// получает только старты работ и makespan.
func (d *Decoder) Decode(enc *encoding.Encoding, commit bool) int {
	if enc.Instance() != d.inst {
		panic(ErrInstanceMismatch)
	}

	d.resetCalendars()
	for pos, job := range enc.Order() {
		proposed := 0
		if pos == 0 {
			proposed = enc.FirstJobImposedStart()
		}
		d.entryPoints[job] = d.scheduleJob(enc, job, proposed, commit)
	}

	enc.SetEntryPoints(d.entryPoints)
	enc.ImposeFirstJobStart(0)
	d.decodes++
	return enc.Makespan()
}

// Decodes - число выполненных декодирований.
func (d *Decoder) Decodes() int { return d.decodes }

// Calendars - календари станков после последнего декодирования.
func (d *Decoder) Calendars() []calendar.Calendar { return d.calendars }

// Validate проверяет разбиение всех календарей.
func (d *Decoder) Validate() error {
	for m := range d.calendars {
		if err := d.calendars[m].Validate(); err != nil {
			return fmt.Errorf("machine %d: %w", m, err)
		}
	}
	return nil
}

// LogCalendars выводит свободные интервалы станков на уровне Debug.
func (d *Decoder) LogCalendars(log zerolog.Logger) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	for m := range d.calendars {
		log.Debug().
			Int("machine", m).
			Int("periods", d.calendars[m].Len()).
			Str("free", d.calendars[m].String()).
			Msg("machine calendar")
	}
}

func (d *Decoder) resetCalendars() {
	for m := range d.calendars {
		d.calendars[m].Reset()
	}
}

// scheduleJob находит старт работы, выбирает станки гибких операций и занимает календари.
func (d *Decoder) scheduleJob(enc *encoding.Encoding, job, proposed int, commit bool) int {
	inst := d.inst
	nops := inst.NumOps(job)
	assigned := enc.JobMachines(job)

	for op := 0; op < nops; op++ {
		d.epop[op] = calendar.Invalid
		d.stiffCursor[op] = 0
		if assigned[op] == encoding.FreeMachine {
			k := inst.NumOpMachines(job, op)
			d.ffeps[op] = resetInts(d.ffeps[op], k, calendar.Invalid)
			d.flexCursor[op] = resetInts(d.flexCursor[op], k, 0)
		}
	}

	// Старт работы только растёт, поэтому цикл завершается: полный проход
	// без повышения означает, что все операции помещаются от ep.
	ep := proposed
	worst, i := 0, 0
	for {
		if d.epop[i] < ep {
			d.timetable(job, i, ep, assigned[i])
		}
		if d.epop[i] > ep {
			worst = i
			ep = d.epop[i]
		}
		i++
		if i == nops {
			i = 0
		}
		if i == worst {
			break
		}
	}

	for op := 0; op < nops; op++ {
		m, hint := assigned[op], d.stiffCursor[op]
		if m == encoding.FreeMachine {
			k := d.firstMachineAt(op, ep)
			m, hint = inst.NthMachine(job, op, k), d.flexCursor[op][k]
		}
		d.chosen[op] = m
		d.calendars[m].Occupy(ep+inst.Delay(job, op), inst.Duration(job, op), hint)
	}

	if commit {
		for op := 0; op < nops; op++ {
			if assigned[op] == encoding.FreeMachine {
				enc.SetMachine(job, op, d.chosen[op])
			}
		}
	}
	return ep
}

// timetable пересчитывает самый ранний старт работы, допускаемый операцией op при старте не раньше ep.
func (d *Decoder) timetable(job, op, ep, machine int) {
	delay := d.inst.Delay(job, op)
	dur := d.inst.Duration(job, op)

	if machine != encoding.FreeMachine {
		d.epop[op] = d.calendars[machine].SearchFirstFeasibleStart(ep+delay, dur, &d.stiffCursor[op]) - delay
		return
	}

	best := calendar.Infinite
	for k, m := range d.inst.Machines(job, op) {
		v := d.calendars[m].SearchFirstFeasibleStart(ep+delay, dur, &d.flexCursor[op][k]) - delay
		d.ffeps[op][k] = v
		if v < best {
			best = v
		}
	}
	d.epop[op] = best
}

// firstMachineAt - индекс первого допустимого станка, на котором операция стартует вместе с работой в ep.
func (d *Decoder) firstMachineAt(op, ep int) int {
	for k, v := range d.ffeps[op] {
		if v == ep {
			return k
		}
	}
	panic(fmt.Sprintf("decoder: no machine reaches entry point %d for op %d", ep, op))
}

func resetInts(buf []int, n, v int) []int {
	if cap(buf) < n {
		buf = make([]int, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = v
	}
	return buf
}
