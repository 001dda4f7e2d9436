package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a-mestre/hilvan/services/studio-service/internal/availability"
	"github.com/a-mestre/hilvan/services/studio-service/internal/booking"
	"github.com/a-mestre/hilvan/services/studio-service/internal/calendar"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
	"github.com/a-mestre/hilvan/services/studio-service/internal/outbox"
	"github.com/a-mestre/hilvan/services/studio-service/internal/storage"
)

// AppointmentSource is the read side of the appointment store used by the
// calendar feed and the listings.
type AppointmentSource interface {
	ListInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.Appointment, error)
	ListByClient(ctx context.Context, ownerID, clientID string) ([]model.Appointment, error)
	StartTimesOnDate(ctx context.Context, ownerID string, date time.Time) ([]time.Time, error)
}

type AppointmentsHandler struct {
	source  AppointmentSource
	creator booking.AppointmentCreator
	clients booking.ClientDirectory
	loc     *time.Location
	logger  *slog.Logger
}

func NewAppointmentsHandler(source AppointmentSource, creator booking.AppointmentCreator, clients booking.ClientDirectory, loc *time.Location, logger *slog.Logger) *AppointmentsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentsHandler{source: source, creator: creator, clients: clients, loc: loc, logger: logger}
}

type appointmentItem struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Type       string `json:"type"`
	Category   string `json:"category"`
	Title      string `json:"title"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
	Origin     string `json:"origin"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type calendarCell struct {
	Date         string            `json:"date"`
	Day          int               `json:"day"`
	Padding      bool              `json:"padding"`
	Today        bool              `json:"today"`
	Appointments []appointmentItem `json:"appointments"`
}

type calendarResponse struct {
	Month    string         `json:"month"`
	Weekdays [7]string      `json:"weekdays"`
	Cells    []calendarCell `json:"cells"`
}

// Calendar serves the month feed: the 42-cell grid with appointments placed
// into their day cells, filtered by the enabled categories.
func (h *AppointmentsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	ref := time.Now().In(h.loc)
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, h.loc)
		if err != nil {
			http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		ref = parsed
	}

	enabled := parseCategories(r.URL.Query().Get("categories"))

	from, to := calendar.MonthWindow(ref)
	appts, err := h.source.ListInRange(r.Context(), owner, from, to)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	cells := calendar.BuildMonthGrid(ref)
	calendar.Place(cells, calendar.FilterByCategory(appts, enabled), h.loc)

	resp := calendarResponse{
		Month:    ref.Format("2006-01"),
		Weekdays: calendar.WeekdayLabels(),
	}
	for _, c := range cells {
		cell := calendarCell{
			Date:         c.Date(h.loc).Format("2006-01-02"),
			Day:          c.Day,
			Padding:      c.Padding,
			Today:        c.Today,
			Appointments: make([]appointmentItem, 0, len(c.Appointments)),
		}
		for _, a := range c.Appointments {
			cell.Appointments = append(cell.Appointments, toAppointmentItem(a, h.loc))
		}
		resp.Cells = append(resp.Cells, cell)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

type createAppointmentRequest struct {
	ClientID string `json:"client_id"`
	Type     string `json:"type"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Notes    string `json:"notes"`
}

// Appointments handles GET list and POST create on /api/v1/appointments.
func (h *AppointmentsHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentsHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var appts []model.Appointment
	var err error
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		appts, err = h.source.ListByClient(r.Context(), owner, clientID)
	} else {
		from, to, rangeErr := parseRange(r, h.loc)
		if rangeErr != nil {
			http.Error(w, rangeErr.Error(), http.StatusBadRequest)
			return
		}
		appts, err = h.source.ListInRange(r.Context(), owner, from, to)
	}
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a, h.loc))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

// create drives one booking form session through the request payload. The
// form enforces the controller rules (required fields, one-hour duration,
// derived title); conflicts stay advisory.
func (h *AppointmentsHandler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		http.Error(w, "client_id required", http.StatusBadRequest)
		return
	}

	form := booking.NewForm(h.source, h.creator, h.clients)
	form.Open(owner)
	form.SetClient(strings.TrimSpace(req.ClientID))
	form.SetType(strings.TrimSpace(req.Type))
	form.SetNotes(req.Notes)
	if req.Date != "" {
		date, err := time.ParseInLocation("2006-01-02", req.Date, h.loc)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if err := form.SetDate(r.Context(), date); err != nil {
			h.logger.Warn("occupied slot load failed", "err", err)
		}
	}
	form.SetTime(strings.TrimSpace(req.Time))

	if !form.CanSubmit() {
		http.Error(w, "date and time required", http.StatusBadRequest)
		return
	}

	created, err := form.Submit(r.Context())
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			http.Error(w, "unknown client", http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("appointment create failed", "err", err)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toAppointmentItem(created, h.loc))
}

type slotsResponse struct {
	Date  string                    `json:"date"`
	Slots []availability.SlotOption `json:"slots"`
}

// Slots serves the booking picker for one day: every half-hour option with
// the taken ones disabled.
func (h *AppointmentsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("date")
	if raw == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", raw, h.loc)
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	starts, err := h.source.StartTimesOnDate(r.Context(), owner, date)
	if err != nil {
		http.Error(w, "failed to load occupied slots", http.StatusInternalServerError)
		return
	}

	resp := slotsResponse{
		Date:  raw,
		Slots: availability.PickerOptions(availability.OccupiedSlots(starts)),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// toAppointmentItem renders times in the studio's location so the calendar
// shows wall-clock hours regardless of how the database stores them.
func toAppointmentItem(a model.Appointment, loc *time.Location) appointmentItem {
	return appointmentItem{
		ID:         a.ID,
		ClientID:   a.ClientID,
		ClientName: a.ClientName,
		ProjectID:  a.ProjectID,
		Type:       a.Type,
		Category:   string(calendar.ResolveCategory(a.Type)),
		Title:      a.Title,
		Notes:      a.Notes,
		Status:     a.Status,
		Origin:     a.Origin,
		StartTime:  a.StartTime.In(loc).Format(time.RFC3339),
		EndTime:    a.EndTime.In(loc).Format(time.RFC3339),
	}
}

func parseCategories(raw string) map[calendar.Category]bool {
	enabled := make(map[calendar.Category]bool)
	if raw == "" {
		for _, c := range calendar.Categories() {
			enabled[c] = true
		}
		return enabled
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			enabled[calendar.Category(part)] = true
		}
	}
	return enabled
}

// parseRange reads the from/to query params as local dates for a [from, to)
// listing window. With no params the window runs from today through the next
// 30 days; a lone from keeps the 30-day span.
func parseRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from, expected YYYY-MM-DD")
		}
		from = parsed
		to = from.AddDate(0, 0, 30)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to, expected YYYY-MM-DD")
		}
		to = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return from, to, nil
}

// TxCreator persists an appointment and its outbox event in one transaction.
// The event carries the client's contact details so the reminder service
// never has to call back into this one.
type TxCreator struct {
	repo       *storage.AppointmentRepository
	outboxRepo *outbox.Repository
	clients    *storage.ClientRepository
}

func NewTxCreator(repo *storage.AppointmentRepository, outboxRepo *outbox.Repository, clients *storage.ClientRepository) *TxCreator {
	return &TxCreator{repo: repo, outboxRepo: outboxRepo, clients: clients}
}

func (c *TxCreator) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}

	var clientName, clientEmail string
	if client, err := c.clients.Get(ctx, appt.OwnerID, appt.ClientID); err == nil {
		clientName = client.FullName
		clientEmail = client.Email
	}

	tx, err := c.repo.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := c.repo.CreateTx(ctx, tx, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	created.ClientName = clientName

	payload, err := json.Marshal(map[string]any{
		"appointment_id": created.ID,
		"owner_id":       created.OwnerID,
		"client_id":      created.ClientID,
		"client_name":    clientName,
		"client_email":   clientEmail,
		"type":           created.Type,
		"title":          created.Title,
		"start_time":     created.StartTime.UTC().Format(time.RFC3339),
		"end_time":       created.EndTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if err := c.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   created.ID,
		EventType:     outbox.TopicAppointmentCreated,
		Payload:       payload,
	}); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return created, nil
}
