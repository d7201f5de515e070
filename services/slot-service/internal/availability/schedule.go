package availability

// Schedule is a merchant's delivery scheduling policy: weekly operating
// hours plus same-day and lead-time rules. Fetched read-only; the engine
// never mutates it.
type Schedule struct {
	AccountID         string
	Timezone          string
	AllowSameDay      bool
	MinLeadTimeMins   int // preparation buffer, applied to same-day requests only
	MaxSchedulingDays int // furthest bookable date, enforced at submission
	OperatingHours    []OperatingHour
}

// OperatingHour is one weekday's open/close window. Nil clocks mean the
// entry carries no usable times even when IsOpen is set.
type OperatingHour struct {
	Day    Weekday
	Open   *Clock
	Close  *Clock
	IsOpen bool
}

// HoursFor returns the operating hours for a weekday. At most one entry
// per weekday is expected; the first match wins.
func (s Schedule) HoursFor(day Weekday) (OperatingHour, bool) {
	for _, h := range s.OperatingHours {
		if h.Day == day {
			return h, true
		}
	}
	return OperatingHour{}, false
}
