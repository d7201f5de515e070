package schedule

import (
	"encoding/json"
	"fmt"

	"github.com/a-voskov/delivera/services/slot-service/internal/availability"
)

// Document is the schedule configuration wire shape: the payload of
// merchant.schedule.updated.v1 events and the cached JSONB column.
type Document struct {
	AccountID            string          `json:"account_id"`
	Timezone             string          `json:"timezone"`
	AllowSameDayDelivery bool            `json:"allow_same_day_delivery"`
	MinLeadTimeMinutes   int             `json:"min_lead_time_minutes"`
	MaxSchedulingDays    int             `json:"max_scheduling_days"`
	OperatingHours       []OperatingHour `json:"operating_hours"`
}

type OperatingHour struct {
	DayOfWeek string `json:"day_of_week"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	IsOpen    bool   `json:"is_open"`
}

// Decode unmarshals a stored configuration document.
func Decode(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decode schedule document: %w", err)
	}
	return doc, nil
}

// Schedule converts the wire document into the engine's domain form.
// Entries with unrecognized day names can never match a requested date;
// they are dropped and reported in the second return so the caller can log
// them. Malformed clock values are hard errors — corrupt configuration is
// never silently coerced.
func (d Document) Schedule() (availability.Schedule, []string, error) {
	s := availability.Schedule{
		AccountID:         d.AccountID,
		Timezone:          d.Timezone,
		AllowSameDay:      d.AllowSameDayDelivery,
		MinLeadTimeMins:   d.MinLeadTimeMinutes,
		MaxSchedulingDays: d.MaxSchedulingDays,
	}

	var unknown []string
	for _, oh := range d.OperatingHours {
		day, ok := availability.ParseWeekday(oh.DayOfWeek)
		if !ok {
			unknown = append(unknown, oh.DayOfWeek)
			continue
		}

		entry := availability.OperatingHour{Day: day, IsOpen: oh.IsOpen}
		if oh.OpenTime != "" {
			c, err := availability.ParseClock(oh.OpenTime)
			if err != nil {
				return availability.Schedule{}, unknown, fmt.Errorf("%s open time: %w", day, err)
			}
			entry.Open = &c
		}
		if oh.CloseTime != "" {
			c, err := availability.ParseClock(oh.CloseTime)
			if err != nil {
				return availability.Schedule{}, unknown, fmt.Errorf("%s close time: %w", day, err)
			}
			entry.Close = &c
		}
		s.OperatingHours = append(s.OperatingHours, entry)
	}
	return s, unknown, nil
}
