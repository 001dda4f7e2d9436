package calendar

import (
	"time"

	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

// GridCells is the fixed size of a month grid: 6 rows of 7 days, enough for
// any month regardless of length or starting weekday.
const GridCells = 42

// Cell is one day square in the month grid. Padding cells belong to the
// previous or next month and are not selectable for booking.
type Cell struct {
	Day     int
	Month   time.Month
	Year    int
	Padding bool
	Today   bool

	Appointments []model.Appointment
}

// Date returns the cell's calendar date at midnight in loc.
func (c Cell) Date(loc *time.Location) time.Time {
	return time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, loc)
}

// BuildMonthGrid produces the 42-cell grid for the month of ref, Monday
// first. Leading cells carry the tail of the previous month, trailing cells
// the head of the next. Today is evaluated against the wall clock in ref's
// location.
func BuildMonthGrid(ref time.Time) []Cell {
	return buildMonthGrid(ref, time.Now().In(ref.Location()))
}

func buildMonthGrid(ref, now time.Time) []Cell {
	year, month, _ := ref.Date()
	loc := ref.Location()

	daysInMonth := daysIn(year, month, loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	firstWeekday := mondayIndex(first.Weekday())

	prev := first.AddDate(0, -1, 0)
	prevYear, prevMonth, _ := prev.Date()
	prevDays := daysIn(prevYear, prevMonth, loc)

	next := first.AddDate(0, 1, 0)
	nextYear, nextMonth, _ := next.Date()

	nowYear, nowMonth, nowDay := now.Date()

	cells := make([]Cell, 0, GridCells)
	for d := prevDays - firstWeekday + 1; d <= prevDays; d++ {
		cells = append(cells, Cell{Day: d, Month: prevMonth, Year: prevYear, Padding: true})
	}
	for d := 1; d <= daysInMonth; d++ {
		cells = append(cells, Cell{
			Day:   d,
			Month: month,
			Year:  year,
			Today: year == nowYear && month == nowMonth && d == nowDay,
		})
	}
	for d := 1; len(cells) < GridCells; d++ {
		cells = append(cells, Cell{Day: d, Month: nextMonth, Year: nextYear, Padding: true})
	}
	return cells
}

// MonthWindow returns the half-open time range covered by the padded grid:
// midnight of the first cell through midnight after the last cell.
func MonthWindow(ref time.Time) (time.Time, time.Time) {
	cells := buildMonthGrid(ref, ref)
	loc := ref.Location()
	start := cells[0].Date(loc)
	end := cells[len(cells)-1].Date(loc).AddDate(0, 0, 1)
	return start, end
}

// WeekdayLabels returns the grid header, Monday first.
func WeekdayLabels() [7]string {
	return [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
}

// mondayIndex remaps Go's Sunday=0 weekday to a Monday=0 column index.
func mondayIndex(w time.Weekday) int {
	if w == time.Sunday {
		return 6
	}
	return int(w) - 1
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
