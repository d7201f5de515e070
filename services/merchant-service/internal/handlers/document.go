package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/a-voskov/delivera/services/merchant-service/internal/storage"
)

// scheduleDocument is the wire shape served on GET and published on the
// schedule-updated topic. Consumers decode exactly this layout.
type scheduleDocument struct {
	AccountID          string         `json:"account_id"`
	Name               string         `json:"name,omitempty"`
	Timezone           string         `json:"timezone"`
	AllowSameDay       bool           `json:"allow_same_day_delivery"`
	MinLeadTimeMinutes int            `json:"min_lead_time_minutes"`
	MaxSchedulingDays  int            `json:"max_scheduling_days"`
	OperatingHours     []operatingDay `json:"operating_hours"`
}

type operatingDay struct {
	DayOfWeek string `json:"day_of_week"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	IsOpen    bool   `json:"is_open"`
}

var dayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func weekdayIndex(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, d := range dayNames {
		if d == name {
			return i, true
		}
	}
	return 0, false
}

// parseMinute converts "HH:MM" to minutes since midnight. Empty strings
// mean the merchant never recorded a time for the day and map to -1.
func parseMinute(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return -1, nil
	}
	hh, mm, ok := strings.Cut(v, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("malformed time %q", v)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("malformed time %q", v)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("malformed time %q", v)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", v)
	}
	return h*60 + m, nil
}

func minuteString(min int) string {
	if min < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// validateSchedule turns a submitted document into storage rows. It
// rejects unknown or duplicate day names, malformed times, close times
// at or before open, and out-of-range policy fields.
func validateSchedule(accountID string, doc scheduleDocument) (storage.Profile, []storage.Hour, error) {
	if strings.TrimSpace(doc.Timezone) == "" {
		doc.Timezone = "UTC"
	}
	if doc.MinLeadTimeMinutes < 0 {
		return storage.Profile{}, nil, fmt.Errorf("min_lead_time_minutes must not be negative")
	}
	if doc.MaxSchedulingDays <= 0 {
		return storage.Profile{}, nil, fmt.Errorf("max_scheduling_days must be positive")
	}

	p := storage.Profile{
		AccountID:          accountID,
		Name:               strings.TrimSpace(doc.Name),
		Timezone:           strings.TrimSpace(doc.Timezone),
		AllowSameDay:       doc.AllowSameDay,
		MinLeadTimeMinutes: doc.MinLeadTimeMinutes,
		MaxSchedulingDays:  doc.MaxSchedulingDays,
	}

	seen := [7]bool{}
	hours := make([]storage.Hour, 0, len(doc.OperatingHours))
	for _, d := range doc.OperatingHours {
		idx, ok := weekdayIndex(d.DayOfWeek)
		if !ok {
			return storage.Profile{}, nil, fmt.Errorf("unknown day_of_week %q", d.DayOfWeek)
		}
		if seen[idx] {
			return storage.Profile{}, nil, fmt.Errorf("duplicate day_of_week %q", d.DayOfWeek)
		}
		seen[idx] = true

		open, err := parseMinute(d.OpenTime)
		if err != nil {
			return storage.Profile{}, nil, err
		}
		closeAt, err := parseMinute(d.CloseTime)
		if err != nil {
			return storage.Profile{}, nil, err
		}
		if d.IsOpen && open >= 0 && closeAt >= 0 && closeAt <= open {
			return storage.Profile{}, nil, fmt.Errorf("close_time must be after open_time for %s", dayNames[idx])
		}
		hours = append(hours, storage.Hour{
			Weekday:     idx,
			IsOpen:      d.IsOpen,
			OpenMinute:  open,
			CloseMinute: closeAt,
		})
	}
	return p, hours, nil
}

// buildDocument is the inverse of validateSchedule, used for GET
// responses and outbox payloads.
func buildDocument(p storage.Profile, hours []storage.Hour) scheduleDocument {
	doc := scheduleDocument{
		AccountID:          p.AccountID,
		Name:               p.Name,
		Timezone:           p.Timezone,
		AllowSameDay:       p.AllowSameDay,
		MinLeadTimeMinutes: p.MinLeadTimeMinutes,
		MaxSchedulingDays:  p.MaxSchedulingDays,
		OperatingHours:     make([]operatingDay, 0, len(hours)),
	}
	for _, h := range hours {
		doc.OperatingHours = append(doc.OperatingHours, operatingDay{
			DayOfWeek: dayNames[h.Weekday],
			OpenTime:  minuteString(h.OpenMinute),
			CloseTime: minuteString(h.CloseMinute),
			IsOpen:    h.IsOpen,
		})
	}
	return doc
}
