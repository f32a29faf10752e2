package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/dbx"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      FreemiumPolicy
	now         func() time.Time
}

func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, policy FreemiumPolicy) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		policy:      policy,
		now:         time.Now,
	}
}

func (s *VaultService) List(ctx context.Context, ownerID string) ([]*models.VaultItem, error) {
	items, err := s.repomanager.VaultItems(s.db).List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing items: %w", err)
	}
	return items, nil
}

// Create stores a new item for ownerID. The owner row is locked for the
// duration of the count and insert, so concurrent creations by the same user
// cannot overshoot the free plan limit. An owner that no longer exists is
// reported as common.ErrUnauthenticated.
func (s *VaultService) Create(ctx context.Context, ownerID, itemType, encryptedPayload string) (*models.VaultItem, error) {
	item, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.VaultItem, error) {
		owner, err := s.repomanager.Users(tx).GetByIDForUpdate(ctx, ownerID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrUnauthenticated
			}
			return nil, err
		}

		itemRepo := s.repomanager.VaultItems(tx)

		n, err := itemRepo.Count(ctx, ownerID)
		if err != nil {
			return nil, err
		}

		if err := s.policy.Check(owner, n); err != nil {
			return nil, err
		}

		now := s.now().UTC()
		item := &models.VaultItem{
			ID:               uuid.NewString(),
			OwnerID:          ownerID,
			ItemType:         itemType,
			EncryptedPayload: encryptedPayload,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := itemRepo.Create(ctx, item); err != nil {
			return nil, err
		}
		return item, nil
	})

	if err != nil {
		if errors.Is(err, common.ErrLimitReached) || errors.Is(err, common.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating item: %w", err)
	}

	return item, nil
}

func (s *VaultService) Update(ctx context.Context, ownerID, itemID, encryptedPayload string) (*models.VaultItem, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, common.ErrorNotFound
	}

	item, err := s.repomanager.VaultItems(s.db).Update(ctx, ownerID, itemID, encryptedPayload, s.now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating item: %w", err)
	}
	return item, nil
}

func (s *VaultService) Delete(ctx context.Context, ownerID, itemID string) error {
	if _, err := uuid.Parse(itemID); err != nil {
		return common.ErrorNotFound
	}

	if err := s.repomanager.VaultItems(s.db).Delete(ctx, ownerID, itemID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting item: %w", err)
	}
	return nil
}
