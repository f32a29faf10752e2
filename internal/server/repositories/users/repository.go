package users

import (
	"context"

	"github.com/dmitrijs2005/nexakey/internal/server/models"
)

// Repository persists User records. Lookups that match nothing return
// common.ErrorNotFound.
type Repository interface {
	// Upsert inserts user or, when the email is taken, overwrites the stored
	// credential hash and biometric flag in place. The stored row is returned.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDForUpdate is GetByID holding a row lock until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	SetPremium(ctx context.Context, id string, premium bool) error
	UpdateCredentialHash(ctx context.Context, id string, credentialHash string) error
}
