package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Begin opens a transaction so a create and its outbox event commit together.
func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AppointmentRepository) CreateTx(ctx context.Context, tx pgx.Tx, appt model.Appointment) (model.Appointment, error) {
	var projectID *string
	if appt.ProjectID != "" {
		projectID = &appt.ProjectID
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, owner_id, client_id, project_id, type, title, notes, status, origin, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, appt.ID, appt.OwnerID, appt.ClientID, projectID, appt.Type, appt.Title,
		appt.Notes, appt.Status, appt.Origin, appt.StartTime, appt.EndTime).Scan(&appt.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

const appointmentColumns = `a.id, a.owner_id, a.client_id, COALESCE(a.project_id::text, ''),
	a.type, a.title, COALESCE(a.notes, ''), a.status, a.origin, a.start_time, a.end_time, a.created_at, c.full_name`

// ListInRange returns appointments whose start falls in [from, to), joined
// with the client's display name, ordered by start time. This is the calendar
// month feed over the padded grid window.
func (r *AppointmentRepository) ListInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.owner_id = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time ASC
	`, ownerID, from, to)
}

func (r *AppointmentRepository) ListByClient(ctx context.Context, ownerID, clientID string) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.owner_id = $1 AND a.client_id = $2
		ORDER BY a.start_time ASC
	`, ownerID, clientID)
}

// StartTimesOnDate projects the occupied picker slots for one calendar day.
// The interval is closed on both ends, mirroring the day bounds the
// availability package computes.
func (r *AppointmentRepository) StartTimesOnDate(ctx context.Context, ownerID string, date time.Time) ([]time.Time, error) {
	y, m, d := date.Date()
	loc := date.Location()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to := time.Date(y, m, d, 23, 59, 59, 0, loc)

	rows, err := r.pool.Query(ctx, `
		SELECT start_time
		FROM appointments
		WHERE owner_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC
	`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		starts = append(starts, t.In(loc))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return starts, nil
}

func (r *AppointmentRepository) CountOnDay(ctx context.Context, ownerID string, date time.Time) (int, error) {
	y, m, d := date.Date()
	loc := date.Location()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE owner_id = $1 AND start_time >= $2 AND start_time < $3
	`, ownerID, from, to).Scan(&n)
	return n, err
}

// Next lists the upcoming appointments from now, for the dashboard card.
func (r *AppointmentRepository) Next(ctx context.Context, ownerID string, now time.Time, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 4
	}
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.owner_id = $1 AND a.start_time >= $2
		ORDER BY a.start_time ASC
		LIMIT $3
	`, ownerID, now, limit)
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.ClientID, &a.ProjectID,
			&a.Type, &a.Title, &a.Notes, &a.Status, &a.Origin,
			&a.StartTime, &a.EndTime, &a.CreatedAt, &a.ClientName); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
