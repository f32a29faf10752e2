// Package vaultitems provides the PostgreSQL-backed vault store.
package vaultitems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/dbx"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
)

// PostgresRepository implements vault item storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns the owner's items, oldest first.
func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]*models.VaultItem, error) {
	query := `SELECT id, owner_id, item_type, encrypted_payload, created_at, updated_at FROM vault_items
		WHERE owner_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select vault items: %w", err)
	}
	defer rows.Close()

	result := make([]*models.VaultItem, 0)
	for rows.Next() {
		var item models.VaultItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.ItemType, &item.EncryptedPayload, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM vault_items WHERE owner_id = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.VaultItem) error {
	query := `INSERT INTO vault_items (id, owner_id, item_type, encrypted_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.OwnerID, item.ItemType, item.EncryptedPayload, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update replaces the payload of the owner's item and refreshes updated_at.
func (r *PostgresRepository) Update(ctx context.Context, ownerID, itemID, encryptedPayload string, updatedAt time.Time) (*models.VaultItem, error) {
	query := `UPDATE vault_items SET encrypted_payload = $3, updated_at = $4
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, item_type, encrypted_payload, created_at, updated_at`

	var item models.VaultItem
	err := r.db.QueryRowContext(ctx, query, itemID, ownerID, encryptedPayload, updatedAt).
		Scan(&item.ID, &item.OwnerID, &item.ItemType, &item.EncryptedPayload, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, itemID string) error {
	query := `DELETE FROM vault_items WHERE id = $1 AND owner_id = $2`

	res, err := r.db.ExecContext(ctx, query, itemID, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
