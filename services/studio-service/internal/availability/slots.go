package availability

import (
	"fmt"
	"time"
)

// The studio books fixed one-hour appointments from a 30-minute-step picker
// covering the working day.
const (
	DayStartHour      = 8
	DayEndHour        = 20
	SlotStep          = 30 * time.Minute
	AppointmentLength = time.Hour
	slotFormat        = "15:04"
)

// OccupiedSlots projects appointment start times onto a set of HH:mm
// strings. The projection is lossy on purpose: only the clock time matters
// to the picker, not which appointment owns it.
func OccupiedSlots(starts []time.Time) map[string]struct{} {
	occupied := make(map[string]struct{}, len(starts))
	for _, s := range starts {
		occupied[s.Format(slotFormat)] = struct{}{}
	}
	return occupied
}

// SlotOption is one selectable time in the booking picker.
type SlotOption struct {
	Time     string `json:"time"`
	Disabled bool   `json:"disabled"`
}

// PickerOptions lists every slot from 08:00 through 20:00 inclusive in
// 30-minute steps (25 options), marking occupied ones disabled. The result
// is advisory: nothing stops a direct write at an occupied time.
func PickerOptions(occupied map[string]struct{}) []SlotOption {
	var opts []SlotOption
	for h := DayStartHour; h <= DayEndHour; h++ {
		for m := 0; m < 60; m += int(SlotStep.Minutes()) {
			if h == DayEndHour && m > 0 {
				break
			}
			slot := fmt.Sprintf("%02d:%02d", h, m)
			_, taken := occupied[slot]
			opts = append(opts, SlotOption{Time: slot, Disabled: taken})
		}
	}
	return opts
}

// DayBounds returns the closed interval [00:00:00, 23:59:59] of date's
// calendar day in date's location, matching the store's start-time query.
func DayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	loc := date.Location()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 59, 0, loc)
	return start, end
}
