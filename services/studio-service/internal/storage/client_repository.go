package storage

import (
	"context"

	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/services/studio-service/internal/model"
)

type ClientRepository struct {
	pool *db.Pool
}

func NewClientRepository(pool *db.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `id, owner_id, full_name, COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(address, ''), COALESCE(address_link, ''), COALESCE(notes, ''), created_at, updated_at`

func scanClient(row interface{ Scan(dest ...any) error }) (model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.OwnerID, &c.FullName, &c.Email, &c.Phone,
		&c.Address, &c.AddressLink, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *ClientRepository) Create(ctx context.Context, c model.Client) (model.Client, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, owner_id, full_name, email, phone, address, address_link, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+clientColumns+`
	`, c.ID, c.OwnerID, c.FullName, c.Email, c.Phone, c.Address, c.AddressLink, c.Notes)
	return scanClient(row)
}

func (r *ClientRepository) Get(ctx context.Context, ownerID, id string) (model.Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	return scanClient(row)
}

func (r *ClientRepository) List(ctx context.Context, ownerID string) ([]model.Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE owner_id = $1
		ORDER BY full_name ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return clients, nil
}

func (r *ClientRepository) Update(ctx context.Context, c model.Client) (model.Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients
		SET full_name = $3,
			email = $4,
			phone = $5,
			address = $6,
			address_link = $7,
			notes = $8,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+clientColumns+`
	`, c.ID, c.OwnerID, c.FullName, c.Email, c.Phone, c.Address, c.AddressLink, c.Notes)
	return scanClient(row)
}

func (r *ClientRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM clients
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}
