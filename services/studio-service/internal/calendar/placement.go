package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

// Category is the display/filter grouping resolved from an appointment's
// free-text type. It drives colour coding and filter toggles, nothing else.
type Category string

const (
	CategoryFitting      Category = "fitting"
	CategoryMeasurement  Category = "measurement"
	CategoryDelivery     Category = "delivery"
	CategoryConsultation Category = "consultation"
)

// Categories lists all groupings in filter-toggle order.
func Categories() []Category {
	return []Category{CategoryFitting, CategoryMeasurement, CategoryDelivery, CategoryConsultation}
}

// ResolveCategory maps a type string to its category by case-insensitive
// substring match, first hit wins. Anything unrecognised falls into the
// consultation bucket. Spanish aliases survive from the studio's own data.
func ResolveCategory(typ string) Category {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "fitting") || strings.Contains(t, "prueba"):
		return CategoryFitting
	case strings.Contains(t, "measurement") || strings.Contains(t, "medicion") || strings.Contains(t, "medición") || strings.Contains(t, "medida"):
		return CategoryMeasurement
	case strings.Contains(t, "delivery") || strings.Contains(t, "entrega"):
		return CategoryDelivery
	default:
		return CategoryConsultation
	}
}

// Place buckets appointments into grid cells by the calendar date of their
// start time, evaluated in loc. Scanned timestamps arrive in UTC, so the
// date must be taken in the studio's location or a late-evening appointment
// drifts into the neighbouring cell. Appointments are sorted by start time
// first so cell order is deterministic.
func Place(cells []Cell, appts []model.Appointment, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	sorted := make([]model.Appointment, len(appts))
	copy(sorted, appts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	byDate := make(map[[3]int][]model.Appointment, len(sorted))
	for _, a := range sorted {
		y, m, d := a.StartTime.In(loc).Date()
		key := [3]int{y, int(m), d}
		byDate[key] = append(byDate[key], a)
	}

	for i := range cells {
		key := [3]int{cells[i].Year, int(cells[i].Month), cells[i].Day}
		cells[i].Appointments = byDate[key]
	}
}

// FilterByCategory keeps only appointments whose resolved category is in the
// enabled set. A nil or empty set hides everything, matching a calendar with
// all filter toggles off.
func FilterByCategory(appts []model.Appointment, enabled map[Category]bool) []model.Appointment {
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if enabled[ResolveCategory(a.Type)] {
			out = append(out, a)
		}
	}
	return out
}
