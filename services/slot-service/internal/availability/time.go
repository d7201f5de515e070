package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday numbering follows time.Weekday: Sunday == 0 … Saturday == 6.
type Weekday uint8

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{
	"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY",
}

func (d Weekday) String() string {
	if int(d) < len(weekdayNames) {
		return weekdayNames[d]
	}
	return fmt.Sprintf("WEEKDAY(%d)", uint8(d))
}

// ParseWeekday matches a day name case-insensitively. Unknown names report
// false rather than an error: a schedule entry with a bad day name simply
// never matches any requested date.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		if name == s {
			return Weekday(i), true
		}
	}
	return 0, false
}

// ErrMalformedClock reports an open/close time that cannot be parsed.
// Corrupt configuration is a hard error, never silently coerced.
var ErrMalformedClock = errors.New("malformed wall-clock value")

// Clock is a merchant-local wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrMalformedClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrMalformedClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrMalformedClock, s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func ClockOf(t time.Time) Clock {
	h, m, _ := t.Clock()
	return Clock{Hour: h, Minute: m}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MinuteOfDay returns minutes since midnight, the storage representation.
func (c Clock) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

func ClockFromMinuteOfDay(m int) Clock {
	return Clock{Hour: m / 60, Minute: m % 60}
}

// Date is a merchant-local calendar date with no time component. It is
// built from explicit components so an ISO string is never reinterpreted
// through UTC.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts "2006-01-02". Only the components are kept, so the
// location used for parsing cannot shift the date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time pins a wall-clock time onto this date in the given location.
func (d Date) Time(c Clock, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

func (d Date) Weekday() Weekday {
	return Weekday(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday())
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}
