package availability

import (
	"testing"
	"time"
)

func TestOccupiedSlots(t *testing.T) {
	day := time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)

	occ := OccupiedSlots([]time.Time{day.Add(10 * time.Hour)})
	if len(occ) != 1 {
		t.Fatalf("expected 1 occupied slot, got %d", len(occ))
	}
	if _, ok := occ["10:00"]; !ok {
		t.Fatalf("expected 10:00 occupied, got %v", occ)
	}

	if occ := OccupiedSlots(nil); len(occ) != 0 {
		t.Fatalf("expected empty set for a free day, got %v", occ)
	}
}

func TestPickerOptions_FullDay(t *testing.T) {
	opts := PickerOptions(nil)
	if len(opts) != 25 {
		t.Fatalf("expected 25 options from 08:00 to 20:00, got %d", len(opts))
	}
	if opts[0].Time != "08:00" {
		t.Fatalf("expected first option 08:00, got %s", opts[0].Time)
	}
	if opts[len(opts)-1].Time != "20:00" {
		t.Fatalf("expected last option 20:00, got %s", opts[len(opts)-1].Time)
	}
	for _, o := range opts {
		if o.Disabled {
			t.Fatalf("no occupied slots but %s is disabled", o.Time)
		}
	}
}

func TestPickerOptions_DisablesOccupied(t *testing.T) {
	day := time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)
	occ := OccupiedSlots([]time.Time{
		day.Add(9 * time.Hour),
		day.Add(9*time.Hour + 30*time.Minute),
	})

	opts := PickerOptions(occ)
	disabled := 0
	for _, o := range opts {
		if o.Disabled {
			disabled++
			if o.Time != "09:00" && o.Time != "09:30" {
				t.Fatalf("unexpected disabled slot %s", o.Time)
			}
		}
	}
	if disabled != 2 {
		t.Fatalf("expected exactly 2 disabled slots, got %d", disabled)
	}
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	ref := time.Date(2023, time.October, 7, 15, 42, 11, 0, loc)

	start, end := DayBounds(ref)
	if !start.Equal(time.Date(2023, time.October, 7, 0, 0, 0, 0, loc)) {
		t.Fatalf("wrong day start: %s", start)
	}
	if !end.Equal(time.Date(2023, time.October, 7, 23, 59, 59, 0, loc)) {
		t.Fatalf("wrong day end: %s", end)
	}
	if start.Location() != loc || end.Location() != loc {
		t.Fatal("bounds must stay in the input location")
	}
}
