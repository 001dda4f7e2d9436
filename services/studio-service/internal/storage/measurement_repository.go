package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type MeasurementRepository struct {
	pool *db.Pool
}

func NewMeasurementRepository(pool *db.Pool) *MeasurementRepository {
	return &MeasurementRepository{pool: pool}
}

func (r *MeasurementRepository) Create(ctx context.Context, m model.Measurement) (model.Measurement, error) {
	values, err := json.Marshal(m.Values)
	if err != nil {
		return model.Measurement{}, fmt.Errorf("encode measurement values: %w", err)
	}
	var projectID *string
	if m.ProjectID != "" {
		projectID = &m.ProjectID
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO measurements (id, owner_id, client_id, project_id, values, notes, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, m.ID, m.OwnerID, m.ClientID, projectID, values, m.Notes, m.Images).Scan(&m.CreatedAt)
	if err != nil {
		return model.Measurement{}, err
	}
	return m, nil
}

func (r *MeasurementRepository) List(ctx context.Context, ownerID string) ([]model.Measurement, error) {
	return r.list(ctx, `
		SELECT m.id, m.owner_id, m.client_id, COALESCE(m.project_id::text, ''),
			m.values, COALESCE(m.notes, ''), m.images, m.created_at, c.full_name
		FROM measurements m
		JOIN clients c ON c.id = m.client_id
		WHERE m.owner_id = $1
		ORDER BY m.created_at DESC
	`, ownerID)
}

func (r *MeasurementRepository) ListByClient(ctx context.Context, ownerID, clientID string) ([]model.Measurement, error) {
	return r.list(ctx, `
		SELECT m.id, m.owner_id, m.client_id, COALESCE(m.project_id::text, ''),
			m.values, COALESCE(m.notes, ''), m.images, m.created_at, c.full_name
		FROM measurements m
		JOIN clients c ON c.id = m.client_id
		WHERE m.owner_id = $1 AND m.client_id = $2
		ORDER BY m.created_at DESC
	`, ownerID, clientID)
}

// LatestByClient returns the most recent sheet, the one prefilled when a new
// sheet is started for the same client.
func (r *MeasurementRepository) LatestByClient(ctx context.Context, ownerID, clientID string) (model.Measurement, error) {
	rows, err := r.list(ctx, `
		SELECT m.id, m.owner_id, m.client_id, COALESCE(m.project_id::text, ''),
			m.values, COALESCE(m.notes, ''), m.images, m.created_at, c.full_name
		FROM measurements m
		JOIN clients c ON c.id = m.client_id
		WHERE m.owner_id = $1 AND m.client_id = $2
		ORDER BY m.created_at DESC
		LIMIT 1
	`, ownerID, clientID)
	if err != nil {
		return model.Measurement{}, err
	}
	if len(rows) == 0 {
		return model.Measurement{}, errNoRows
	}
	return rows[0], nil
}

func (r *MeasurementRepository) list(ctx context.Context, query string, args ...any) ([]model.Measurement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []model.Measurement
	for rows.Next() {
		var m model.Measurement
		var values []byte
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.ClientID, &m.ProjectID,
			&values, &m.Notes, &m.Images, &m.CreatedAt, &m.ClientName); err != nil {
			return nil, err
		}
		if len(values) > 0 {
			if err := json.Unmarshal(values, &m.Values); err != nil {
				return nil, fmt.Errorf("decode measurement values: %w", err)
			}
		}
		sheets = append(sheets, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return sheets, nil
}
