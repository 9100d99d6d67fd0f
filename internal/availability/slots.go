package availability

import (
	"iter"
	"sort"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
)

// Interval is a half-open [Start, End) time range in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a bookable candidate interval. Slots are ephemeral: they are
// derived on demand from availability windows minus booked meetings and are
// referenced by offer index, never persisted.
type Slot struct {
	Start    time.Time // UTC
	Duration time.Duration

	// window index in declaration order, used to break start-time ties.
	window int
}

func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

type Params struct {
	Duration    time.Duration // meeting length; default 30m
	Step        time.Duration // candidate grid; default = Duration
	HorizonDays int           // default 14
	Lead        time.Duration // minimum notice before a slot may start; default 15m
	Now         time.Time     // defaults to time.Now
}

func (p Params) withDefaults() Params {
	if p.Duration <= 0 {
		p.Duration = 30 * time.Minute
	}
	if p.Step <= 0 {
		p.Step = p.Duration
	}
	if p.HorizonDays <= 0 {
		p.HorizonDays = 14
	}
	if p.Lead < 0 {
		p.Lead = 0
	} else if p.Lead == 0 {
		p.Lead = 15 * time.Minute
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	return p
}

// Slots returns the bookable candidates for the given windows, ordered by
// start time ascending with ties broken by window declaration order. The
// sequence is finite and restartable; filtering against busy intervals and
// the lead-time floor happens as the sequence is consumed. An empty sequence
// is the normal "no availability" outcome, never an error.
//
// Pure function of its inputs; safe for concurrent use.
func Slots(windows []model.AvailabilityWindow, busy []Interval, p Params) iter.Seq[Slot] {
	p = p.withDefaults()
	candidates := expand(windows, p)
	earliest := p.Now.Add(p.Lead)

	return func(yield func(Slot) bool) {
		for _, s := range candidates {
			if s.Start.Before(earliest) {
				continue
			}
			if overlapsAny(s.Start, s.End(), busy) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// ComputeSlots collects the full candidate list, optionally capped at limit
// (limit <= 0 means unbounded).
func ComputeSlots(windows []model.AvailabilityWindow, busy []Interval, p Params, limit int) []Slot {
	var out []Slot
	for s := range Slots(windows, busy, p) {
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// expand walks each window's occurrences inside the horizon and emits the
// duration-sized candidates on the step grid, normalized to UTC. Candidates
// must fit entirely inside the window (half-open).
func expand(windows []model.AvailabilityWindow, p Params) []Slot {
	var out []Slot
	for wi, w := range windows {
		if w.StartMinute >= w.EndMinute {
			continue
		}
		loc, err := time.LoadLocation(w.Timezone)
		if err != nil {
			loc = time.UTC
		}
		local := p.Now.In(loc)
		base := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		for day := 0; day < p.HorizonDays; day++ {
			d := base.AddDate(0, 0, day)
			if d.Weekday() != w.Weekday {
				continue
			}
			winStart := d.Add(time.Duration(w.StartMinute) * time.Minute)
			winEnd := d.Add(time.Duration(w.EndMinute) * time.Minute)
			for t := winStart; !t.Add(p.Duration).After(winEnd); t = t.Add(p.Step) {
				out = append(out, Slot{Start: t.UTC(), Duration: p.Duration, window: wi})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].window < out[j].window
	})
	return out
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff
		// start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// FormatLocal renders a slot start for speech in the given IANA timezone,
// e.g. "Monday, January 2 at 3:04 PM".
func FormatLocal(s Slot, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return s.Start.In(loc).Format("Monday, January 2 at 3:04 PM")
}
