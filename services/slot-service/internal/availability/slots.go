package availability

import (
	"fmt"
	"time"
)

const (
	// DefaultGranularity is the fixed business default for slot width.
	DefaultGranularity = 2 * time.Hour

	// minWindow drops micro-windows produced by clamping near closing time.
	minWindow = 15 * time.Minute

	// asapRound keeps shifted same-day starts on tidy boundaries.
	asapRound = 10 * time.Minute
)

// Reason classifies why a date has no deliverable windows. All of these are
// recoverable business outcomes carried in the result, not errors.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonConfigMissing Reason = "configuration_missing"
	ReasonClosed        Reason = "store_closed"
	ReasonSameDayOff    Reason = "same_day_not_offered"
	ReasonCutoff        Reason = "cutoff_passed"
	ReasonNoWindows     Reason = "no_windows"
	ReasonPastDate      Reason = "date_in_past"
	ReasonTooFarAhead   Reason = "date_too_far_ahead"
)

// Window is one deliverable time window on the requested date. Start may
// have been shifted forward from the raw slot boundary for same-day
// requests (the "as soon as possible" adjustment).
type Window struct {
	Start Clock
	End   Clock
	Label string
}

// Value renders the compact "HH:mm-HH:mm" form used as a selection value.
func (w Window) Value() string {
	return w.Start.String() + "-" + w.End.String()
}

// Evaluation is the engine output: the ordered deliverable windows, or a
// reason why there are none. Windows is empty whenever Reason is set.
type Evaluation struct {
	Windows []Window
	Reason  Reason
	Message string
}

// Options tunes slot generation. The granularity default is a deliberate
// business rule; override it only when the merchant contract says so.
type Options struct {
	Granularity time.Duration
}

func unavailable(reason Reason, message string) Evaluation {
	return Evaluation{Reason: reason, Message: message}
}

// Evaluate computes the deliverable time windows for one merchant-local
// calendar date. now is the injected evaluation instant and must already be
// in the merchant's location; its location anchors all instant arithmetic.
// Evaluate is pure and safe for concurrent use.
func Evaluate(s Schedule, date Date, now time.Time, opts Options) Evaluation {
	if len(s.OperatingHours) == 0 {
		return unavailable(ReasonConfigMissing, "schedule configuration unavailable")
	}

	hours, ok := s.HoursFor(date.Weekday())
	if !ok || !hours.IsOpen {
		return unavailable(ReasonClosed, "store closed this day of week")
	}
	if hours.Open == nil || hours.Close == nil {
		// Unusable entry: no windows, but no explicit rejection either.
		return Evaluation{}
	}

	loc := now.Location()
	isToday := date == DateOf(now)
	closeAt := date.Time(*hours.Close, loc)

	var minAvailable time.Time
	if isToday {
		if !s.AllowSameDay {
			return unavailable(ReasonSameDayOff, "same-day delivery not offered")
		}
		minAvailable = earliestFulfilment(s, now)
		if minAvailable.After(closeAt) {
			return unavailable(ReasonCutoff, fmt.Sprintf(
				"order cutoff passed for today (%d minutes of lead time required); try tomorrow",
				s.MinLeadTimeMins))
		}
	}

	step := opts.Granularity
	if step <= 0 {
		step = DefaultGranularity
	}

	var windows []Window
	for cur := date.Time(*hours.Open, loc); cur.Before(closeAt); cur = cur.Add(step) {
		start := cur
		end := cur.Add(step)
		if end.After(closeAt) {
			end = closeAt
		}
		if !end.After(start) {
			continue
		}

		display := start
		if isToday {
			if !end.After(minAvailable) {
				// Nothing could be ready before this window closes.
				continue
			}
			if start.Before(minAvailable) {
				display = ceilToBoundary(minAvailable, asapRound)
				if !display.Before(end) {
					continue
				}
			}
		}
		if end.Sub(display) < minWindow {
			continue
		}

		from, to := ClockOf(display), ClockOf(end)
		windows = append(windows, Window{
			Start: from,
			End:   to,
			Label: from.String() + " - " + to.String(),
		})
	}

	if len(windows) == 0 {
		return unavailable(ReasonNoWindows, "no slots available for this date")
	}
	return Evaluation{Windows: windows}
}

// Orderable re-validates an already-chosen delivery instant against the
// same rule set slot generation uses, so the submission verdict can never
// disagree with the windows previously shown. at and now must share the
// merchant's location.
func Orderable(s Schedule, at time.Time, now time.Time) (bool, Reason) {
	if len(s.OperatingHours) == 0 {
		return false, ReasonConfigMissing
	}

	date, today := DateOf(at), DateOf(now)
	if date.Before(today) {
		return false, ReasonPastDate
	}
	if s.MaxSchedulingDays > 0 && date.After(today.AddDays(s.MaxSchedulingDays)) {
		return false, ReasonTooFarAhead
	}

	hours, ok := s.HoursFor(date.Weekday())
	if !ok || !hours.IsOpen {
		return false, ReasonClosed
	}
	if hours.Open == nil || hours.Close == nil {
		return false, ReasonNoWindows
	}

	loc := at.Location()
	if at.Before(date.Time(*hours.Open, loc)) || !at.Before(date.Time(*hours.Close, loc)) {
		return false, ReasonClosed
	}

	if date == today {
		if !s.AllowSameDay {
			return false, ReasonSameDayOff
		}
		if at.Before(earliestFulfilment(s, now)) {
			return false, ReasonCutoff
		}
	}
	return true, ReasonNone
}

// earliestFulfilment is the first instant the merchant could deliver a
// same-day order placed now.
func earliestFulfilment(s Schedule, now time.Time) time.Time {
	if s.MinLeadTimeMins > 0 {
		return now.Add(time.Duration(s.MinLeadTimeMins) * time.Minute)
	}
	return now
}

// ceilToBoundary rounds t up to the next multiple of step past midnight,
// zeroing seconds. A value already on a boundary is unchanged.
func ceilToBoundary(t time.Time, step time.Duration) time.Time {
	stepMins := int(step / time.Minute)
	h, m, _ := t.Clock()
	total := h*60 + m
	if t.Second() > 0 || t.Nanosecond() > 0 {
		total++
	}
	total = (total + stepMins - 1) / stepMins * stepMins

	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, total, 0, 0, t.Location())
}
