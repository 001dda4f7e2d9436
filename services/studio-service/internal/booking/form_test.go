package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type fakeSlots struct {
	mu      sync.Mutex
	byDate  map[string][]time.Time
	blockOn string        // date (2006-01-02) whose load waits on release
	release chan struct{}
	err     error
}

func (s *fakeSlots) StartTimesOnDate(ctx context.Context, ownerID string, date time.Time) ([]time.Time, error) {
	key := date.Format("2006-01-02")
	if s.blockOn == key {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.byDate[key], nil
}

type fakeCreator struct {
	mu      sync.Mutex
	created []model.Appointment
	err     error
}

func (c *fakeCreator) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return model.Appointment{}, c.err
	}
	appt.ID = "appt-1"
	c.created = append(c.created, appt)
	return appt, nil
}

type fakeClients struct {
	clients map[string]model.Client
}

func (d *fakeClients) Get(ctx context.Context, ownerID, clientID string) (model.Client, error) {
	c, ok := d.clients[clientID]
	if !ok {
		return model.Client{}, errors.New("client not found")
	}
	return c, nil
}

func newTestForm(slots *fakeSlots, creator *fakeCreator) *Form {
	dir := &fakeClients{clients: map[string]model.Client{
		"c1": {ID: "c1", FullName: "Maria Lopez"},
	}}
	return NewForm(slots, creator, dir)
}

func TestForm_SubmitDisabledUntilComplete(t *testing.T) {
	f := newTestForm(&fakeSlots{}, &fakeCreator{})
	f.Open("owner-1")

	if f.CanSubmit() {
		t.Fatal("fresh form must not be submittable")
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}

	if err := f.SetDate(context.Background(), time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if f.CanSubmit() {
		t.Fatal("date alone must not be enough")
	}
	f.SetTime("10:00")
	if !f.CanSubmit() {
		t.Fatal("date plus time should enable submit")
	}
}

func TestForm_SubmitWritesOneHourAppointment(t *testing.T) {
	creator := &fakeCreator{}
	f := newTestForm(&fakeSlots{}, creator)
	f.Open("owner-1")
	f.SetClient("c1")
	f.SetType("delivery")
	f.SetNotes("bring the hem pins")
	if err := f.SetDate(context.Background(), time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	f.SetTime("16:30")

	created, err := f.Submit(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	wantStart := time.Date(2023, time.October, 7, 16, 30, 0, 0, time.UTC)
	if !created.StartTime.Equal(wantStart) {
		t.Fatalf("start: expected %s, got %s", wantStart, created.StartTime)
	}
	if !created.EndTime.Equal(wantStart.Add(time.Hour)) {
		t.Fatalf("end must be start + 1h, got %s", created.EndTime)
	}
	if created.Title != "Delivery - Maria Lopez" {
		t.Fatalf("unexpected title %q", created.Title)
	}
	if created.Status != "scheduled" || created.Origin != "manual" {
		t.Fatalf("unexpected status/origin %q/%q", created.Status, created.Origin)
	}
	if len(creator.created) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(creator.created))
	}

	// Success resets the session.
	if f.State() != StateIdle {
		t.Fatalf("expected idle after success, got %s", f.State())
	}
	if f.CanSubmit() {
		t.Fatal("fields must be cleared after success")
	}
}

func TestForm_FailureKeepsFields(t *testing.T) {
	creator := &fakeCreator{err: errors.New("connection refused")}
	f := newTestForm(&fakeSlots{}, creator)
	f.Open("owner-1")
	if err := f.SetDate(context.Background(), time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	f.SetTime("10:00")

	if _, err := f.Submit(context.Background()); err == nil {
		t.Fatal("expected submit failure")
	}
	if f.State() != StateEditing {
		t.Fatalf("expected editing after failure, got %s", f.State())
	}
	if !f.CanSubmit() {
		t.Fatal("fields must survive a failed submit")
	}

	creator.mu.Lock()
	creator.err = nil
	creator.mu.Unlock()
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
}

func TestForm_StaleSlotLoadIsDropped(t *testing.T) {
	dateA := time.Date(2023, time.October, 7, 0, 0, 0, 0, time.UTC)
	dateB := time.Date(2023, time.October, 8, 0, 0, 0, 0, time.UTC)
	slots := &fakeSlots{
		byDate: map[string][]time.Time{
			"2023-10-07": {dateA.Add(9 * time.Hour)},
			"2023-10-08": {dateB.Add(14 * time.Hour)},
		},
		blockOn: "2023-10-07",
		release: make(chan struct{}),
	}
	f := newTestForm(slots, &fakeCreator{})
	f.Open("owner-1")

	done := make(chan error, 1)
	go func() { done <- f.SetDate(context.Background(), dateA) }()

	// Select date B while A's load is still in flight, then let A finish.
	time.Sleep(10 * time.Millisecond)
	if err := f.SetDate(context.Background(), dateB); err != nil {
		t.Fatal(err)
	}
	close(slots.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	occ := f.OccupiedSlots()
	if _, stale := occ["09:00"]; stale {
		t.Fatal("stale result for the superseded date was applied")
	}
	if _, ok := occ["14:00"]; !ok {
		t.Fatalf("expected 14:00 occupied for the current date, got %v", occ)
	}
}

func TestForm_CancelDiscards(t *testing.T) {
	f := newTestForm(&fakeSlots{}, &fakeCreator{})
	f.Open("owner-1")
	f.SetClient("c1")
	f.SetTime("10:00")

	f.Cancel()
	if f.State() != StateIdle {
		t.Fatalf("expected idle after cancel, got %s", f.State())
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
}

func TestCombine(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatal(err)
	}
	date := time.Date(2023, time.October, 7, 0, 0, 0, 0, loc)

	got, err := Combine(date, "09:30")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2023, time.October, 7, 9, 30, 0, 0, loc)) {
		t.Fatalf("unexpected combined time %s", got)
	}

	if _, err := Combine(date, "half past nine"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTitle(t *testing.T) {
	if got := Title("fitting", "Maria Lopez"); got != "Fitting - Maria Lopez" {
		t.Fatalf("got %q", got)
	}
	if got := Title("measurement", ""); got != "Measurement" {
		t.Fatalf("got %q", got)
	}
	if got := Title("", "Maria Lopez"); got != "Fitting - Maria Lopez" {
		t.Fatalf("got %q", got)
	}
	// Types typed in Spanish can start with an accented letter.
	if got := Title("último ajuste", "Maria Lopez"); got != "Último ajuste - Maria Lopez" {
		t.Fatalf("got %q", got)
	}
}
