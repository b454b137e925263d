// Package timeslot is the single parser for every slot grammar the API
// accepts: 24h times ("9:00", "17:00"), 12h times ("9:00 am", "12:00 pm")
// and the three fixed lab blocks (08-12, 12-16, 16-20). Ambiguous or
// unknown input is rejected, never coerced.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

// Day indices follow the schedule grid convention: Monday=0 .. Sunday=6.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// LabBlocks are the canonical four-hour lab slots, keyed by starting hour.
var LabBlocks = map[string]int{
	"08-12": 8,
	"12-16": 12,
	"16-20": 16,
}

// ParseDay resolves a day label (index "0".."6", full name, or
// three-letter abbreviation) to its grid index.
func ParseDay(label string) (int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(label))
	if trimmed == "" {
		return 0, appErrors.Clone(appErrors.ErrUnknownDay, "empty day label")
	}

	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx < Monday || idx > Sunday {
			return 0, appErrors.Clone(appErrors.ErrUnknownDay, fmt.Sprintf("day index %d out of range 0-6", idx))
		}
		return idx, nil
	}

	for i, name := range dayNames {
		if trimmed == name || trimmed == name[:3] {
			return i, nil
		}
	}
	return 0, appErrors.Clone(appErrors.ErrUnknownDay, fmt.Sprintf("unknown day label %q", label))
}

// DayName returns the full lowercase name for a grid index.
func DayName(day int) string {
	if day < Monday || day > Sunday {
		return ""
	}
	return dayNames[day]
}

// DayIndex maps a time.Weekday to the grid convention (Monday=0).
func DayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// ParseHour resolves a time-slot expression to its starting hour.
// Accepted forms: "H:MM"/"HH:MM" (24h), "H:MM am/pm" and "H am/pm"
// (12h), and the lab blocks "08-12", "12-16", "16-20".
func ParseHour(slot string) (int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(slot))
	if trimmed == "" {
		return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, "empty time slot")
	}

	if hour, ok := LabBlocks[trimmed]; ok {
		return hour, nil
	}

	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(trimmed, suffix) {
			meridiem = suffix
			trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, suffix))
			break
		}
	}

	hourPart := trimmed
	minutePart := "0"
	if strings.Contains(trimmed, ":") {
		parts := strings.SplitN(trimmed, ":", 2)
		hourPart, minutePart = parts[0], parts[1]
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, fmt.Sprintf("unparseable time slot %q", slot))
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, fmt.Sprintf("unparseable minutes in %q", slot))
	}
	if minute != 0 {
		return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, fmt.Sprintf("slot %q does not start on the hour", slot))
	}

	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, fmt.Sprintf("hour %d out of 12h range", hour))
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, fmt.Sprintf("hour %d out of 12h range", hour))
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, appErrors.Clone(appErrors.ErrUnknownTimeSlot, fmt.Sprintf("hour %d out of 24h range", hour))
		}
	}

	return hour, nil
}

// Covers reports whether an availability window [start, end), expressed
// in minutes from midnight, covers hour h: start <= h:00 < end.
func Covers(startMinutes, endMinutes, hour int) bool {
	mark := hour * 60
	return startMinutes <= mark && mark < endMinutes
}

// CoversRange reports whether [aStart, aEnd) fully contains the shift
// span [sStart, sEnd], all in minutes from midnight.
func CoversRange(aStart, aEnd, sStart, sEnd int) bool {
	return aStart <= sStart && sStart < sEnd && sEnd <= aEnd
}

// MinutesOfDay collapses a wall-clock instant to minutes from midnight.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatHour renders a starting hour as a zero-padded 24h label.
func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// Label renders a grid range like "09:00 - 10:00".
func Label(startHour, endHour int) string {
	return FormatHour(startHour) + " - " + FormatHour(endHour)
}
