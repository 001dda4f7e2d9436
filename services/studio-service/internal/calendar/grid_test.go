package calendar

import (
	"testing"
	"time"
)

func TestBuildMonthGrid_Always42Cells(t *testing.T) {
	months := []time.Time{
		time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC),  // 28 days
		time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), // leap
		time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC),   // starts Sunday
		time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),     // starts Monday
		time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, ref := range months {
		cells := BuildMonthGrid(ref)
		if len(cells) != GridCells {
			t.Fatalf("%s: expected %d cells, got %d", ref.Month(), GridCells, len(cells))
		}

		year, month, _ := ref.Date()
		var days []int
		for _, c := range cells {
			if !c.Padding {
				if c.Year != year || c.Month != month {
					t.Fatalf("%s: non-padding cell outside month: %+v", ref.Month(), c)
				}
				days = append(days, c.Day)
			}
		}
		want := daysIn(year, month, time.UTC)
		if len(days) != want {
			t.Fatalf("%s: expected %d month cells, got %d", ref.Month(), want, len(days))
		}
		for i, d := range days {
			if d != i+1 {
				t.Fatalf("%s: month days out of order at %d: got %d", ref.Month(), i, d)
			}
		}
	}
}

func TestBuildMonthGrid_MondayStartHasNoLeadingPadding(t *testing.T) {
	// April 2024 starts on a Monday.
	cells := BuildMonthGrid(time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC))
	if cells[0].Padding {
		t.Fatalf("expected first cell to be April 1, got padding cell %+v", cells[0])
	}
	if cells[0].Day != 1 || cells[0].Month != time.April {
		t.Fatalf("expected April 1 first, got %+v", cells[0])
	}
}

func TestBuildMonthGrid_October2023(t *testing.T) {
	// October 2023 starts on a Sunday: 6 leading padding days (Sep 25-30),
	// 31 day cells, 5 trailing padding days (Nov 1-5).
	cells := BuildMonthGrid(time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 6; i++ {
		c := cells[i]
		if !c.Padding || c.Month != time.September || c.Day != 25+i {
			t.Fatalf("leading cell %d: expected Sep %d padding, got %+v", i, 25+i, c)
		}
	}
	for i := 0; i < 31; i++ {
		c := cells[6+i]
		if c.Padding || c.Month != time.October || c.Day != i+1 {
			t.Fatalf("month cell %d: expected Oct %d, got %+v", i, i+1, c)
		}
	}
	for i := 0; i < 5; i++ {
		c := cells[37+i]
		if !c.Padding || c.Month != time.November || c.Day != i+1 {
			t.Fatalf("trailing cell %d: expected Nov %d padding, got %+v", i, i+1, c)
		}
	}
}

func TestBuildMonthGrid_TodayFlag(t *testing.T) {
	now := time.Date(2023, time.October, 5, 14, 30, 0, 0, time.UTC)
	cells := buildMonthGrid(now, now)

	var marked []Cell
	for _, c := range cells {
		if c.Today {
			marked = append(marked, c)
		}
	}
	if len(marked) != 1 {
		t.Fatalf("expected exactly one today cell, got %d", len(marked))
	}
	if marked[0].Day != 5 || marked[0].Month != time.October || marked[0].Padding {
		t.Fatalf("wrong today cell: %+v", marked[0])
	}
}

func TestMonthWindow_CoversPaddedGrid(t *testing.T) {
	ref := time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC)
	start, end := MonthWindow(ref)

	wantStart := time.Date(2023, time.September, 25, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2023, time.November, 6, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("window start: expected %s, got %s", wantStart, start)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("window end: expected %s, got %s", wantEnd, end)
	}
}

func TestMondayIndex(t *testing.T) {
	if got := mondayIndex(time.Monday); got != 0 {
		t.Fatalf("Monday: expected 0, got %d", got)
	}
	if got := mondayIndex(time.Sunday); got != 6 {
		t.Fatalf("Sunday: expected 6, got %d", got)
	}
	if got := mondayIndex(time.Wednesday); got != 2 {
		t.Fatalf("Wednesday: expected 2, got %d", got)
	}
}
