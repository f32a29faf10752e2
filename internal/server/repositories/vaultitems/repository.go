package vaultitems

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/server/models"
)

// Repository persists vault items. Every method is scoped by owner; an item
// that exists under another owner is reported as common.ErrorNotFound.
type Repository interface {
	List(ctx context.Context, ownerID string) ([]*models.VaultItem, error)
	Count(ctx context.Context, ownerID string) (int, error)
	Create(ctx context.Context, item *models.VaultItem) error
	Update(ctx context.Context, ownerID, itemID, encryptedPayload string, updatedAt time.Time) (*models.VaultItem, error)
	Delete(ctx context.Context, ownerID, itemID string) error
}
