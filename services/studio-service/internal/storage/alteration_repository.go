package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type AlterationRepository struct {
	pool *db.Pool
}

func NewAlterationRepository(pool *db.Pool) *AlterationRepository {
	return &AlterationRepository{pool: pool}
}

func (r *AlterationRepository) Create(ctx context.Context, a model.Alteration) (model.Alteration, error) {
	tasks, err := json.Marshal(a.Tasks)
	if err != nil {
		return model.Alteration{}, fmt.Errorf("encode alteration tasks: %w", err)
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO alterations (id, owner_id, project_id, garment_type, tasks, notes, evidence_images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, a.ID, a.OwnerID, a.ProjectID, a.GarmentType, tasks, a.Notes, a.EvidenceImages).Scan(&a.CreatedAt)
	if err != nil {
		return model.Alteration{}, err
	}
	return a, nil
}

func (r *AlterationRepository) GetByProject(ctx context.Context, ownerID, projectID string) (model.Alteration, error) {
	var a model.Alteration
	var tasks []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, project_id, garment_type, tasks, COALESCE(notes, ''), evidence_images, created_at
		FROM alterations
		WHERE owner_id = $1 AND project_id = $2
	`, ownerID, projectID).Scan(&a.ID, &a.OwnerID, &a.ProjectID, &a.GarmentType,
		&tasks, &a.Notes, &a.EvidenceImages, &a.CreatedAt)
	if err != nil {
		return model.Alteration{}, err
	}
	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &a.Tasks); err != nil {
			return model.Alteration{}, fmt.Errorf("decode alteration tasks: %w", err)
		}
	}
	return a, nil
}

// UpdateTasks replaces the task list, used when lines are ticked off.
func (r *AlterationRepository) UpdateTasks(ctx context.Context, ownerID, id string, tasks []model.AlterationTask) error {
	encoded, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode alteration tasks: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE alterations
		SET tasks = $3
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID, encoded)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}
