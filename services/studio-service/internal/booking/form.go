package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/a-mestre/hilvan/services/studio-service/internal/availability"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

// State is the booking form's lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
)

// DefaultType preselects the most common appointment kind.
const DefaultType = "fitting"

var (
	ErrNotEditing       = errors.New("booking: form is not open for editing")
	ErrIncomplete       = errors.New("booking: date and time are required")
	ErrSubmitInProgress = errors.New("booking: submit already in progress")
)

// SlotSource reports appointment start times already taken on a date.
type SlotSource interface {
	StartTimesOnDate(ctx context.Context, ownerID string, date time.Time) ([]time.Time, error)
}

// AppointmentCreator persists a new appointment.
type AppointmentCreator interface {
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
}

// ClientDirectory resolves a client for title derivation.
type ClientDirectory interface {
	Get(ctx context.Context, ownerID, clientID string) (model.Client, error)
}

// Form drives one booking session. Slot loads are asynchronous with respect
// to the user's selection, so results carry a sequence number and only the
// latest selection's result is applied (last write wins).
type Form struct {
	slots   SlotSource
	creator AppointmentCreator
	clients ClientDirectory

	mu       sync.Mutex
	state    State
	ownerID  string
	fetchSeq uint64

	clientID string
	typ      string
	date     time.Time
	timeStr  string
	notes    string
	occupied map[string]struct{}
}

func NewForm(slots SlotSource, creator AppointmentCreator, clients ClientDirectory) *Form {
	return &Form{slots: slots, creator: creator, clients: clients, state: StateIdle}
}

// Open transitions Idle -> Editing for the given owner, resetting all fields.
func (f *Form) Open(ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateEditing
	f.ownerID = ownerID
	f.clientID = ""
	f.typ = DefaultType
	f.date = time.Time{}
	f.timeStr = ""
	f.notes = ""
	f.occupied = nil
	f.fetchSeq++
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) SetClient(clientID string) { f.setField(func() { f.clientID = clientID }) }
func (f *Form) SetNotes(notes string)     { f.setField(func() { f.notes = notes }) }

func (f *Form) SetType(typ string) {
	f.setField(func() {
		if typ == "" {
			typ = DefaultType
		}
		f.typ = typ
	})
}

func (f *Form) setField(apply func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateEditing {
		return
	}
	apply()
}

// SetDate records the selected date and loads its occupied slots. If the
// selection changes while the load is in flight, the stale result is dropped.
func (f *Form) SetDate(ctx context.Context, date time.Time) error {
	f.mu.Lock()
	if f.state != StateEditing {
		f.mu.Unlock()
		return ErrNotEditing
	}
	f.date = date
	f.occupied = nil
	f.fetchSeq++
	seq := f.fetchSeq
	ownerID := f.ownerID
	f.mu.Unlock()

	starts, err := f.slots.StartTimesOnDate(ctx, ownerID, date)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.fetchSeq {
		// A newer selection superseded this load.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load occupied slots: %w", err)
	}
	f.occupied = availability.OccupiedSlots(starts)
	return nil
}

func (f *Form) SetTime(timeStr string) {
	f.setField(func() { f.timeStr = timeStr })
}

// OccupiedSlots returns the cached set for the current date selection.
func (f *Form) OccupiedSlots() map[string]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.occupied))
	for k := range f.occupied {
		out[k] = struct{}{}
	}
	return out
}

// CanSubmit reports whether the mandatory fields are filled.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateEditing && !f.date.IsZero() && f.timeStr != ""
}

// Submit combines the selected date and time into a start, writes a one-hour
// appointment, and resets the form on success. On failure the fields are kept
// so the user can retry. The create operation runs at most once per submit.
func (f *Form) Submit(ctx context.Context) (model.Appointment, error) {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return model.Appointment{}, ErrSubmitInProgress
	case StateEditing:
	default:
		f.mu.Unlock()
		return model.Appointment{}, ErrNotEditing
	}
	if f.date.IsZero() || f.timeStr == "" {
		f.mu.Unlock()
		return model.Appointment{}, ErrIncomplete
	}
	start, err := Combine(f.date, f.timeStr)
	if err != nil {
		f.mu.Unlock()
		return model.Appointment{}, err
	}
	f.state = StateSubmitting
	ownerID, clientID, typ, notes := f.ownerID, f.clientID, f.typ, f.notes
	f.mu.Unlock()

	appt := model.Appointment{
		OwnerID:   ownerID,
		ClientID:  clientID,
		Type:      typ,
		Notes:     notes,
		Status:    "scheduled",
		Origin:    "manual",
		StartTime: start,
		EndTime:   start.Add(availability.AppointmentLength),
	}
	appt.Title = Title(typ, f.clientName(ctx, ownerID, clientID))

	created, err := f.creator.Create(ctx, appt)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateEditing
		return model.Appointment{}, err
	}
	f.reset()
	return created, nil
}

func (f *Form) clientName(ctx context.Context, ownerID, clientID string) string {
	if clientID == "" || f.clients == nil {
		return ""
	}
	client, err := f.clients.Get(ctx, ownerID, clientID)
	if err != nil {
		return ""
	}
	return client.FullName
}

// Cancel discards the session and returns to Idle.
func (f *Form) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.reset()
}

func (f *Form) reset() {
	f.state = StateIdle
	f.clientID = ""
	f.typ = ""
	f.date = time.Time{}
	f.timeStr = ""
	f.notes = ""
	f.occupied = nil
	f.fetchSeq++
}

// Combine builds a start time from a calendar date and an HH:mm picker value,
// in the date's location.
func Combine(date time.Time, timeStr string) (time.Time, error) {
	clock, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", timeStr, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}

// Title derives the human-readable appointment title shown on the calendar,
// e.g. "Fitting - Maria Lopez". With no client it falls back to the type alone.
func Title(typ, clientName string) string {
	t := strings.TrimSpace(typ)
	if t == "" {
		t = DefaultType
	}
	first, size := utf8.DecodeRuneInString(t)
	t = string(unicode.ToUpper(first)) + t[size:]
	if clientName == "" {
		return t
	}
	return t + " - " + clientName
}
