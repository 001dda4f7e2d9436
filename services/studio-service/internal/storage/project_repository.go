package storage

import (
	"context"
	"time"

	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type ProjectRepository struct {
	pool *db.Pool
}

func NewProjectRepository(pool *db.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = `p.id, p.owner_id, p.client_id, p.title, p.type, p.status,
	COALESCE(p.description, ''), p.total_cost, p.deposit, p.is_paid, p.images, p.created_at, c.full_name`

func (r *ProjectRepository) Create(ctx context.Context, p model.Project) (model.Project, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO projects (id, owner_id, client_id, title, type, status, description, total_cost, deposit, is_paid, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, p.ID, p.OwnerID, p.ClientID, p.Title, p.Type, p.Status, p.Description,
		p.TotalCost, p.Deposit, p.IsPaid, p.Images).Scan(&p.CreatedAt)
	if err != nil {
		return model.Project{}, err
	}
	return p, nil
}

func (r *ProjectRepository) Get(ctx context.Context, ownerID, id string) (model.Project, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN clients c ON c.id = p.client_id
		WHERE p.id = $1 AND p.owner_id = $2
	`, id, ownerID)
	return scanProject(row)
}

func (r *ProjectRepository) List(ctx context.Context, ownerID string) ([]model.Project, error) {
	return r.list(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN clients c ON c.id = p.client_id
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
	`, ownerID)
}

func (r *ProjectRepository) ListByClient(ctx context.Context, ownerID, clientID string) ([]model.Project, error) {
	return r.list(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN clients c ON c.id = p.client_id
		WHERE p.owner_id = $1 AND p.client_id = $2
		ORDER BY p.created_at DESC
	`, ownerID, clientID)
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, ownerID, id, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET status = $3
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}

func (r *ProjectRepository) SetPaid(ctx context.Context, ownerID, id string, paid bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET is_paid = $3
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID, paid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}

// CountPending counts projects still on the studio's table.
func (r *ProjectRepository) CountPending(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM projects
		WHERE owner_id = $1 AND status IN ('pending', 'in_progress')
	`, ownerID).Scan(&n)
	return n, err
}

// MonthRevenue sums total_cost of projects created in the month containing ref.
func (r *ProjectRepository) MonthRevenue(ctx context.Context, ownerID string, ref time.Time) (float64, error) {
	year, month, _ := ref.Date()
	from := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	to := from.AddDate(0, 1, 0)

	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cost), 0)
		FROM projects
		WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3
	`, ownerID, from, to).Scan(&total)
	return total, err
}

func (r *ProjectRepository) Recent(ctx context.Context, ownerID string, limit int) ([]model.Project, error) {
	if limit <= 0 {
		limit = 3
	}
	return r.list(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN clients c ON c.id = p.client_id
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`, ownerID, limit)
}

func scanProject(row interface{ Scan(dest ...any) error }) (model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.ClientID, &p.Title, &p.Type, &p.Status,
		&p.Description, &p.TotalCost, &p.Deposit, &p.IsPaid, &p.Images, &p.CreatedAt, &p.ClientName)
	return p, err
}

func (r *ProjectRepository) list(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return projects, nil
}
