package calendar

import (
	"testing"
	"time"

	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

func apt(id, typ string, start time.Time) model.Appointment {
	return model.Appointment{ID: id, Type: typ, StartTime: start, EndTime: start.Add(time.Hour)}
}

func TestPlace_BucketsByDate(t *testing.T) {
	cells := BuildMonthGrid(time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC))
	appts := []model.Appointment{
		apt("a1", "fitting", time.Date(2023, time.October, 7, 9, 0, 0, 0, time.UTC)),
		apt("a2", "delivery", time.Date(2023, time.October, 12, 16, 0, 0, 0, time.UTC)),
		apt("a3", "measurement", time.Date(2023, time.October, 7, 11, 30, 0, 0, time.UTC)),
	}

	Place(cells, appts, time.UTC)

	var day7 *Cell
	for i := range cells {
		c := &cells[i]
		if !c.Padding && c.Day == 7 {
			day7 = c
			continue
		}
		for _, a := range c.Appointments {
			if a.ID == "a1" || a.ID == "a3" {
				t.Fatalf("appointment %s leaked into cell %d %s", a.ID, c.Day, c.Month)
			}
		}
	}
	if day7 == nil {
		t.Fatal("no cell for October 7")
	}
	if len(day7.Appointments) != 2 {
		t.Fatalf("expected 2 appointments on day 7, got %d", len(day7.Appointments))
	}
	if day7.Appointments[0].ID != "a1" || day7.Appointments[1].ID != "a3" {
		t.Fatalf("expected start-time order a1,a3; got %s,%s", day7.Appointments[0].ID, day7.Appointments[1].ID)
	}
}

func TestPlace_PaddingCellsReceiveAdjacentMonthAppointments(t *testing.T) {
	cells := BuildMonthGrid(time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC))
	appts := []model.Appointment{
		apt("sep", "fitting", time.Date(2023, time.September, 28, 10, 0, 0, 0, time.UTC)),
	}
	Place(cells, appts, time.UTC)

	found := false
	for _, c := range cells {
		for _, a := range c.Appointments {
			if a.ID == "sep" {
				if !c.Padding || c.Day != 28 || c.Month != time.September {
					t.Fatalf("sep appointment in wrong cell: %+v", c)
				}
				found = true
			}
		}
	}
	if !found {
		t.Fatal("appointment in padded window not placed")
	}
}

func TestPlace_UTCStoredTimesLandOnLocalDate(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	cells := BuildMonthGrid(time.Date(2023, time.October, 1, 0, 0, 0, 0, madrid))
	// 00:30 on 1 October in Madrid, stored as 30 September 22:30 UTC.
	start := time.Date(2023, time.October, 1, 0, 30, 0, 0, madrid).UTC()
	Place(cells, []model.Appointment{apt("midnight", "fitting", start)}, madrid)

	for _, c := range cells {
		for _, a := range c.Appointments {
			if a.ID != "midnight" {
				continue
			}
			if c.Padding || c.Day != 1 || c.Month != time.October {
				t.Fatalf("expected cell 1 October, got %d %s padding=%v", c.Day, c.Month, c.Padding)
			}
			return
		}
	}
	t.Fatal("appointment not placed")
}

func TestResolveCategory(t *testing.T) {
	cases := []struct {
		typ  string
		want Category
	}{
		{"fitting", CategoryFitting},
		{"Primera Prueba", CategoryFitting},
		{"Segunda prueba", CategoryFitting},
		{"measurement", CategoryMeasurement},
		{"Toma de Medidas", CategoryMeasurement},
		{"Medición inicial", CategoryMeasurement},
		{"delivery", CategoryDelivery},
		{"Entrega Final", CategoryDelivery},
		{"consultation", CategoryConsultation},
		{"whatever else", CategoryConsultation},
		{"", CategoryConsultation},
	}
	for _, tc := range cases {
		if got := ResolveCategory(tc.typ); got != tc.want {
			t.Errorf("ResolveCategory(%q): expected %s, got %s", tc.typ, tc.want, got)
		}
	}
}

func TestFilterByCategory(t *testing.T) {
	day := time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)
	appts := []model.Appointment{
		apt("f", "Primera Prueba", day.Add(9*time.Hour)),
		apt("m", "Toma de Medidas", day.Add(10*time.Hour)),
		apt("d", "Entrega Final", day.Add(11*time.Hour)),
	}

	enabled := map[Category]bool{
		CategoryMeasurement:  true,
		CategoryDelivery:     true,
		CategoryConsultation: true,
	}
	kept := FilterByCategory(appts, enabled)
	if len(kept) != 2 {
		t.Fatalf("expected 2 appointments after disabling fittings, got %d", len(kept))
	}
	for _, a := range kept {
		if a.ID == "f" {
			t.Fatal("fitting appointment survived a disabled fitting filter")
		}
	}

	if got := FilterByCategory(appts, nil); len(got) != 0 {
		t.Fatalf("expected empty result with no enabled categories, got %d", len(got))
	}
}
