package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a-mestre/hilvan/libs/auth"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type fakeSource struct {
	appts  []model.Appointment
	starts []time.Time
}

func (f *fakeSource) ListInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.OwnerID == ownerID && !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) ListByClient(ctx context.Context, ownerID, clientID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.OwnerID == ownerID && a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) StartTimesOnDate(ctx context.Context, ownerID string, date time.Time) ([]time.Time, error) {
	return f.starts, nil
}

type recordingCreator struct {
	created []model.Appointment
}

func (c *recordingCreator) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	appt.ID = "appt-new"
	c.created = append(c.created, appt)
	return appt, nil
}

type staticDirectory struct{}

func (staticDirectory) Get(ctx context.Context, ownerID, clientID string) (model.Client, error) {
	return model.Client{ID: clientID, FullName: "Maria Lopez", Email: "maria@example.com"}, nil
}

func authed(r *http.Request, ownerID string) *http.Request {
	claims := &auth.Claims{Sub: ownerID, OwnerID: ownerID, Role: "owner"}
	return r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
}

func newTestHandler(src *fakeSource, creator *recordingCreator) *AppointmentsHandler {
	logger := slog.New(slog.NewTextHandler(new(strings.Builder), nil))
	return NewAppointmentsHandler(src, creator, staticDirectory{}, time.UTC, logger)
}

func TestCalendar_OctoberFeed(t *testing.T) {
	src := &fakeSource{appts: []model.Appointment{
		{ID: "a1", OwnerID: "o1", ClientID: "c1", Type: "Primera Prueba", Title: "Fitting - Maria",
			StartTime: time.Date(2023, time.October, 7, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2023, time.October, 7, 11, 0, 0, 0, time.UTC)},
		{ID: "a2", OwnerID: "o1", ClientID: "c1", Type: "Entrega Final", Title: "Delivery - Maria",
			StartTime: time.Date(2023, time.September, 28, 16, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2023, time.September, 28, 17, 0, 0, 0, time.UTC)},
	}}
	h := newTestHandler(src, &recordingCreator{})

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/calendar?month=2023-10", nil), "o1")
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp calendarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Cells) != 42 {
		t.Fatalf("expected 42 cells, got %d", len(resp.Cells))
	}
	if resp.Weekdays[0] != "Monday" {
		t.Fatalf("grid must start on Monday, got %s", resp.Weekdays[0])
	}

	byDate := make(map[string]calendarCell)
	for _, c := range resp.Cells {
		byDate[c.Date] = c
	}
	oct7 := byDate["2023-10-07"]
	if len(oct7.Appointments) != 1 || oct7.Appointments[0].ID != "a1" {
		t.Fatalf("expected a1 on Oct 7, got %+v", oct7.Appointments)
	}
	if oct7.Appointments[0].Category != "fitting" {
		t.Fatalf("expected fitting category, got %s", oct7.Appointments[0].Category)
	}
	// Padding cell carries the September appointment.
	sep28 := byDate["2023-09-28"]
	if !sep28.Padding || len(sep28.Appointments) != 1 || sep28.Appointments[0].ID != "a2" {
		t.Fatalf("expected a2 on padded Sep 28, got %+v", sep28)
	}
}

func TestCalendar_StudioLocalPlacement(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	// 00:30 on 1 October in Madrid is still 30 September in UTC, which is how
	// the database hands the timestamp back.
	start := time.Date(2023, time.October, 1, 0, 30, 0, 0, madrid).UTC()
	src := &fakeSource{appts: []model.Appointment{
		{ID: "a1", OwnerID: "o1", ClientID: "c1", Type: "fitting",
			StartTime: start, EndTime: start.Add(time.Hour)},
	}}
	logger := slog.New(slog.NewTextHandler(new(strings.Builder), nil))
	h := NewAppointmentsHandler(src, &recordingCreator{}, staticDirectory{}, madrid, logger)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/calendar?month=2023-10", nil), "o1")
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)

	var resp calendarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	for _, c := range resp.Cells {
		for _, a := range c.Appointments {
			if c.Date != "2023-10-01" {
				t.Fatalf("appointment placed on %s, want 2023-10-01", c.Date)
			}
			if a.StartTime != "2023-10-01T00:30:00+02:00" {
				t.Fatalf("start time not studio-local: %s", a.StartTime)
			}
			return
		}
	}
	t.Fatal("appointment missing from feed")
}

func TestCalendar_CategoryFilter(t *testing.T) {
	src := &fakeSource{appts: []model.Appointment{
		{ID: "a1", OwnerID: "o1", Type: "fitting",
			StartTime: time.Date(2023, time.October, 7, 10, 0, 0, 0, time.UTC)},
		{ID: "a2", OwnerID: "o1", Type: "delivery",
			StartTime: time.Date(2023, time.October, 7, 12, 0, 0, 0, time.UTC)},
	}}
	h := newTestHandler(src, &recordingCreator{})

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/calendar?month=2023-10&categories=delivery", nil), "o1")
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)

	var resp calendarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	for _, c := range resp.Cells {
		for _, a := range c.Appointments {
			if a.ID != "a2" {
				t.Fatalf("filtered appointment leaked: %+v", a)
			}
		}
	}
}

func TestSlots(t *testing.T) {
	day := time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{starts: []time.Time{day.Add(10 * time.Hour)}}
	h := newTestHandler(src, &recordingCreator{})

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots?date=2023-10-07", nil), "o1")
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp slotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Slots) != 25 {
		t.Fatalf("expected 25 slots, got %d", len(resp.Slots))
	}
	for _, s := range resp.Slots {
		if s.Disabled != (s.Time == "10:00") {
			t.Fatalf("slot %s disabled=%v", s.Time, s.Disabled)
		}
	}
}

func TestListAppointments_Range(t *testing.T) {
	src := &fakeSource{appts: []model.Appointment{
		{ID: "in", OwnerID: "o1", Type: "fitting",
			StartTime: time.Date(2023, time.October, 3, 10, 0, 0, 0, time.UTC)},
		{ID: "out", OwnerID: "o1", Type: "fitting",
			StartTime: time.Date(2023, time.October, 20, 10, 0, 0, 0, time.UTC)},
	}}
	h := newTestHandler(src, &recordingCreator{})

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/appointments?from=2023-10-01&to=2023-10-08", nil), "o1")
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "in" {
		t.Fatalf("expected only the in-window appointment, got %+v", items)
	}
}

func TestListAppointments_InvertedRange(t *testing.T) {
	h := newTestHandler(&fakeSource{}, &recordingCreator{})

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/appointments?from=2023-10-08&to=2023-10-01", nil), "o1")
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateAppointment(t *testing.T) {
	creator := &recordingCreator{}
	h := newTestHandler(&fakeSource{}, creator)

	body := `{"client_id":"c1","type":"fitting","date":"2023-10-07","time":"10:00","notes":"first fitting"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), "o1")
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected one create, got %d", len(creator.created))
	}
	got := creator.created[0]
	if !got.StartTime.Equal(time.Date(2023, time.October, 7, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("wrong start %s", got.StartTime)
	}
	if got.EndTime.Sub(got.StartTime) != time.Hour {
		t.Fatalf("expected one hour duration, got %s", got.EndTime.Sub(got.StartTime))
	}
	if got.Title != "Fitting - Maria Lopez" {
		t.Fatalf("wrong title %q", got.Title)
	}
}

func TestCreateAppointment_MissingTime(t *testing.T) {
	creator := &recordingCreator{}
	h := newTestHandler(&fakeSource{}, creator)

	body := `{"client_id":"c1","type":"fitting","date":"2023-10-07"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), "o1")
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(creator.created) != 0 {
		t.Fatal("incomplete form must not create")
	}
}

func TestRequireAuth(t *testing.T) {
	secret := "test-secret"
	var captured *auth.Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAuth(secret)(inner)

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := auth.SignHS256(auth.Claims{
		Sub: "u1", OwnerID: "u1", Role: "owner",
		Iat: time.Now().Unix(), Exp: time.Now().Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
	if captured == nil || captured.OwnerID != "u1" {
		t.Fatalf("claims not propagated: %+v", captured)
	}
}
