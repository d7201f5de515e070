package availability

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// weekSchedule opens every day of the week with the same hours.
func weekSchedule(open, close Clock) Schedule {
	s := Schedule{
		AccountID:         "acc_test",
		AllowSameDay:      true,
		MinLeadTimeMins:   60,
		MaxSchedulingDays: 30,
	}
	for d := Sunday; d <= Saturday; d++ {
		o, c := open, close
		s.OperatingHours = append(s.OperatingHours, OperatingHour{
			Day: d, Open: &o, Close: &c, IsOpen: true,
		})
	}
	return s
}

func labels(windows []Window) []string {
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.Value())
	}
	return out
}

func TestEvaluate_FullDayTomorrow(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	tomorrow := DateOf(now).AddDays(1)

	ev := Evaluate(s, tomorrow, now, Options{})
	if ev.Reason != ReasonNone {
		t.Fatalf("unexpected reason %q (%s)", ev.Reason, ev.Message)
	}

	want := []string{
		"08:00-10:00", "10:00-12:00", "12:00-14:00",
		"14:00-16:00", "16:00-18:00", "18:00-20:00",
	}
	if got := labels(ev.Windows); !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestEvaluate_SameDayShiftsFirstWindow(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

	ev := Evaluate(s, DateOf(now), now, Options{})
	if ev.Reason != ReasonNone {
		t.Fatalf("unexpected reason %q (%s)", ev.Reason, ev.Message)
	}

	// 09:15 + 60m lead = 10:15, rounded up to 10:20. The 08:00-10:00 window
	// is entirely unreachable and must be gone.
	want := []string{
		"10:20-12:00", "12:00-14:00", "14:00-16:00",
		"16:00-18:00", "18:00-20:00",
	}
	if got := labels(ev.Windows); !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch:\n got %v\nwant %v", got, want)
	}
	if ev.Windows[0].Label != "10:20 - 12:00" {
		t.Fatalf("unexpected display label %q", ev.Windows[0].Label)
	}
}

func TestEvaluate_CutoffPassed(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	now := time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC)

	ev := Evaluate(s, DateOf(now), now, Options{})
	if len(ev.Windows) != 0 {
		t.Fatalf("expected no windows, got %v", labels(ev.Windows))
	}
	if ev.Reason != ReasonCutoff {
		t.Fatalf("expected cutoff reason, got %q", ev.Reason)
	}
	// The message must name the lead time so the UI can explain itself.
	if want := "60 minutes"; !strings.Contains(ev.Message, want) {
		t.Fatalf("cutoff message %q does not mention %q", ev.Message, want)
	}
}

func TestEvaluate_ClampsLastWindowToClose(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{19, 10})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tomorrow := DateOf(now).AddDays(1)

	ev := Evaluate(s, tomorrow, now, Options{})
	last := ev.Windows[len(ev.Windows)-1]
	if last.Value() != "18:00-19:10" {
		t.Fatalf("expected clamped final window 18:00-19:10, got %s", last.Value())
	}
	// No degenerate [19:10,19:10) follower.
	for _, w := range ev.Windows {
		if w.Start == w.End {
			t.Fatalf("degenerate window emitted: %s", w.Value())
		}
	}
}

func TestEvaluate_DropsShortClampRemainder(t *testing.T) {
	// Closing at 18:05 leaves a 5-minute stub after 18:00 — under the
	// 15-minute floor, so it must be dropped.
	s := weekSchedule(Clock{8, 0}, Clock{18, 5})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tomorrow := DateOf(now).AddDays(1)

	ev := Evaluate(s, tomorrow, now, Options{})
	last := ev.Windows[len(ev.Windows)-1]
	if last.Value() != "16:00-18:00" {
		t.Fatalf("expected final window 16:00-18:00, got %s", last.Value())
	}
}

func TestEvaluate_SameDayNotOffered(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	s.AllowSameDay = false
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ev := Evaluate(s, DateOf(now), now, Options{})
	if len(ev.Windows) != 0 || ev.Reason != ReasonSameDayOff {
		t.Fatalf("expected same-day rejection, got %q with %v", ev.Reason, labels(ev.Windows))
	}

	// Tomorrow is unaffected by the same-day policy.
	ev = Evaluate(s, DateOf(now).AddDays(1), now, Options{})
	if ev.Reason != ReasonNone {
		t.Fatalf("tomorrow should be available, got %q", ev.Reason)
	}
}

func TestEvaluate_ClosedDay(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) // a Tuesday
	tomorrow := DateOf(now).AddDays(1)

	for i := range s.OperatingHours {
		if s.OperatingHours[i].Day == Wednesday {
			s.OperatingHours[i].IsOpen = false
		}
	}
	ev := Evaluate(s, tomorrow, now, Options{})
	if len(ev.Windows) != 0 || ev.Reason != ReasonClosed {
		t.Fatalf("expected closed-day rejection, got %q with %v", ev.Reason, labels(ev.Windows))
	}

	// A weekday with no entry at all behaves the same.
	var hours []OperatingHour
	for _, h := range weekSchedule(Clock{8, 0}, Clock{20, 0}).OperatingHours {
		if h.Day != Wednesday {
			hours = append(hours, h)
		}
	}
	s.OperatingHours = hours
	ev = Evaluate(s, tomorrow, now, Options{})
	if ev.Reason != ReasonClosed {
		t.Fatalf("expected closed reason for missing entry, got %q", ev.Reason)
	}
}

func TestEvaluate_NoOperatingHours(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ev := Evaluate(Schedule{AccountID: "acc_empty"}, DateOf(now), now, Options{})
	if ev.Reason != ReasonConfigMissing {
		t.Fatalf("expected config-missing reason, got %q", ev.Reason)
	}
}

func TestEvaluate_MissingClocksYieldNoWindowsNoReason(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := Schedule{
		AccountID: "acc_nil_clocks",
		OperatingHours: []OperatingHour{
			{Day: Wednesday, IsOpen: true}, // open flag set, no times
		},
	}
	ev := Evaluate(s, DateOf(now).AddDays(1), now, Options{})
	if len(ev.Windows) != 0 {
		t.Fatalf("expected no windows, got %v", labels(ev.Windows))
	}
	if ev.Reason != ReasonNone {
		t.Fatalf("expected no forced reason, got %q", ev.Reason)
	}
}

func TestEvaluate_DegenerateOpenCloseWindow(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{8, 0})
	now := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

	ev := Evaluate(s, DateOf(now).AddDays(1), now, Options{})
	if len(ev.Windows) != 0 || ev.Reason != ReasonNoWindows {
		t.Fatalf("expected generic no-windows reason, got %q with %v", ev.Reason, labels(ev.Windows))
	}
}

func TestEvaluate_CustomGranularity(t *testing.T) {
	s := weekSchedule(Clock{9, 0}, Clock{12, 0})
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tomorrow := DateOf(now).AddDays(1)

	ev := Evaluate(s, tomorrow, now, Options{Granularity: time.Hour})
	want := []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}
	if got := labels(ev.Windows); !reflect.DeepEqual(got, want) {
		t.Fatalf("windows mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestEvaluate_WindowInvariants(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{19, 10})
	closeMin := 19*60 + 10

	nows := []time.Time{
		time.Date(2026, 3, 10, 7, 3, 21, 0, time.UTC),
		time.Date(2026, 3, 10, 11, 59, 59, 500, time.UTC),
		time.Date(2026, 3, 10, 16, 41, 0, 0, time.UTC),
	}
	for _, now := range nows {
		for dayOffset := 0; dayOffset < 3; dayOffset++ {
			ev := Evaluate(s, DateOf(now).AddDays(dayOffset), now, Options{})
			for _, w := range ev.Windows {
				if w.End.MinuteOfDay() <= w.Start.MinuteOfDay() {
					t.Fatalf("now=%v day+%d: window %s not end>start", now, dayOffset, w.Value())
				}
				if w.End.MinuteOfDay()-w.Start.MinuteOfDay() < 15 {
					t.Fatalf("now=%v day+%d: window %s under 15 minutes", now, dayOffset, w.Value())
				}
				if w.End.MinuteOfDay() > closeMin {
					t.Fatalf("now=%v day+%d: window %s ends after close", now, dayOffset, w.Value())
				}
			}
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	date := DateOf(now)

	first := Evaluate(s, date, now, Options{})
	second := Evaluate(s, date, now, Options{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("evaluate is not deterministic:\n%v\n%v", first, second)
	}
}

func TestEvaluate_SameDayRoundingEdges(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})

	cases := []struct {
		name      string
		now       time.Time
		wantFirst string
	}{
		// Already on a boundary: no extra shift.
		{"exact boundary", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), "10:00-12:00"},
		// 09:01+60 = 10:01 → 10:10.
		{"round up", time.Date(2026, 3, 10, 9, 1, 0, 0, time.UTC), "10:10-12:00"},
		// Seconds are zeroed before rounding: 09:10:30+60 = 10:10:30 → 10:20.
		{"seconds push boundary", time.Date(2026, 3, 10, 9, 10, 30, 0, time.UTC), "10:20-12:00"},
	}
	for _, tc := range cases {
		ev := Evaluate(s, DateOf(tc.now), tc.now, Options{})
		if len(ev.Windows) == 0 {
			t.Fatalf("%s: no windows (%s)", tc.name, ev.Message)
		}
		if got := ev.Windows[0].Value(); got != tc.wantFirst {
			t.Fatalf("%s: first window %s, want %s", tc.name, got, tc.wantFirst)
		}
	}
}

func TestEvaluate_ShiftedStartSwallowsWholeWindow(t *testing.T) {
	// Close 11:00, lead pushes earliest fulfilment to 10:55; the rounded
	// start (11:00) reaches the window end and the window must go, leaving
	// nothing — generic reason, not cutoff, since 10:55 <= close.
	s := weekSchedule(Clock{9, 0}, Clock{11, 0})
	now := time.Date(2026, 3, 10, 9, 55, 0, 0, time.UTC)

	ev := Evaluate(s, DateOf(now), now, Options{})
	if len(ev.Windows) != 0 {
		t.Fatalf("expected no windows, got %v", labels(ev.Windows))
	}
	if ev.Reason != ReasonNoWindows {
		t.Fatalf("expected no-windows reason, got %q", ev.Reason)
	}
}

func TestOrderable(t *testing.T) {
	s := weekSchedule(Clock{8, 0}, Clock{20, 0})
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	today := DateOf(now)

	cases := []struct {
		name       string
		at         time.Time
		mutate     func(*Schedule)
		wantOK     bool
		wantReason Reason
	}{
		{"tomorrow morning", today.AddDays(1).Time(Clock{10, 0}, time.UTC), nil, true, ReasonNone},
		{"yesterday", today.AddDays(-1).Time(Clock{10, 0}, time.UTC), nil, false, ReasonPastDate},
		{"beyond max days", today.AddDays(31).Time(Clock{10, 0}, time.UTC), nil, false, ReasonTooFarAhead},
		{"at max days", today.AddDays(30).Time(Clock{10, 0}, time.UTC), nil, true, ReasonNone},
		{"before opening", today.AddDays(1).Time(Clock{7, 0}, time.UTC), nil, false, ReasonClosed},
		{"at close", today.AddDays(1).Time(Clock{20, 0}, time.UTC), nil, false, ReasonClosed},
		{"same day after lead", today.Time(Clock{10, 20}, time.UTC), nil, true, ReasonNone},
		{"same day inside lead", today.Time(Clock{10, 0}, time.UTC), nil, false, ReasonCutoff},
		{
			"same day disallowed", today.Time(Clock{12, 0}, time.UTC),
			func(s *Schedule) { s.AllowSameDay = false }, false, ReasonSameDayOff,
		},
		{
			"no config", today.AddDays(1).Time(Clock{10, 0}, time.UTC),
			func(s *Schedule) { s.OperatingHours = nil }, false, ReasonConfigMissing,
		},
	}
	for _, tc := range cases {
		sc := s
		if tc.mutate != nil {
			sc.OperatingHours = append([]OperatingHour(nil), s.OperatingHours...)
			tc.mutate(&sc)
		}
		ok, reason := Orderable(sc, tc.at, now)
		if ok != tc.wantOK || reason != tc.wantReason {
			t.Fatalf("%s: got (%v, %q), want (%v, %q)", tc.name, ok, reason, tc.wantOK, tc.wantReason)
		}
	}
}

func TestOrderable_AgreesWithEvaluate(t *testing.T) {
	// Every generated window start must itself be orderable with the same
	// schedule and now — the UI and the submission check may never disagree.
	s := weekSchedule(Clock{8, 0}, Clock{19, 10})
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

	for dayOffset := 0; dayOffset < 3; dayOffset++ {
		date := DateOf(now).AddDays(dayOffset)
		ev := Evaluate(s, date, now, Options{})
		for _, w := range ev.Windows {
			at := date.Time(w.Start, time.UTC)
			if ok, reason := Orderable(s, at, now); !ok {
				t.Fatalf("day+%d window %s rejected at submission: %q", dayOffset, w.Value(), reason)
			}
		}
	}
}
