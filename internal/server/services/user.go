package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/server/auth"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AuthResult is what a successful register or login hands back to the client.
type AuthResult struct {
	AccessToken string
	User        *models.User
}

// Profile is a user together with the number of items in their vault.
type Profile struct {
	User            *models.User
	VaultItemsCount int
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	now         func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		now:         time.Now,
	}
}

// Register creates the account for email, or overwrites the credential hash
// and biometric flag of an existing one, and issues a token for it.
//
// The overwrite means anyone who knows an email can replace its credential.
// Clients depend on register being repeatable, so it is kept.
func (s *UserService) Register(ctx context.Context, email, credentialHash string, biometricEnabled bool) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.Upsert(ctx, &models.User{
		ID:               uuid.NewString(),
		Email:            email,
		CredentialHash:   credentialHash,
		BiometricEnabled: biometricEnabled,
		CreatedAt:        s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("error registering user: %w", err)
	}

	return s.authResult(user)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) checkCredential(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// Login issues a token when credentialHash matches the stored one. An
// unknown email and a wrong hash are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, credentialHash string) (*AuthResult, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.checkCredential(user.CredentialHash, credentialHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.authResult(user)
}

func (s *UserService) authResult(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, User: user}, nil
}

// UpgradePremium marks the user as premium. Repeating it is harmless.
func (s *UserService) UpgradePremium(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).SetPremium(ctx, userID, true); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error upgrading user: %w", err)
	}
	return nil
}

// RecoverWithBiometric replaces the credential hash of a user that opted in
// to biometric recovery. No biometric proof is checked here; the flag alone
// gates it.
func (s *UserService) RecoverWithBiometric(ctx context.Context, email, newCredentialHash string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	if !user.BiometricEnabled {
		return common.ErrBiometricNotEnabled
	}

	if err := repo.UpdateCredentialHash(ctx, user.ID, newCredentialHash); err != nil {
		return fmt.Errorf("error updating credential: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. Every token or lookup
// failure other than a storage error is reported as common.ErrUnauthenticated.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrUnauthenticated
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return user, nil
}

func (s *UserService) Profile(ctx context.Context, user *models.User) (*Profile, error) {
	n, err := s.repomanager.VaultItems(s.db).Count(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error counting items: %w", err)
	}
	return &Profile{User: user, VaultItemsCount: n}, nil
}
