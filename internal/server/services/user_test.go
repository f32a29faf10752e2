package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/server/auth"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, store *memStore, tokens *auth.TokenService) *UserService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	if tokens == nil {
		tokens = auth.NewTokenService("k", time.Hour)
	}
	return NewUserService(db, &fakeRepoManager{s: store}, tokens)
}

func TestRegister_NewUser(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)

	res, err := s.Register(context.Background(), "a@x.io", "h1", true)
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "a@x.io", res.User.Email)
	assert.True(t, res.User.BiometricEnabled)
	assert.False(t, res.User.IsPremium)
	_, err = uuid.Parse(res.User.ID)
	assert.NoError(t, err)
}

func TestRegister_SameEmailKeepsIDAndReplacesHash(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)
	ctx := context.Background()

	first, err := s.Register(ctx, "a@x.io", "h1", false)
	require.NoError(t, err)
	second, err := s.Register(ctx, "a@x.io", "h2", true)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = s.Login(ctx, "a@x.io", "h1")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	res, err := s.Login(ctx, "a@x.io", "h2")
	require.NoError(t, err)
	assert.True(t, res.User.BiometricEnabled)
}

func TestRegister_StorageError(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errBoom{}
	s := newUserService(t, store, nil)

	_, err := s.Register(context.Background(), "a@x.io", "h1", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom{})
}

func TestLogin_TokenResolvesToUser(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@x.io", "h1", false)
	require.NoError(t, err)

	res, err := s.Login(ctx, "a@x.io", "h1")
	require.NoError(t, err)

	u, err := s.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)
}

func TestLogin_Failures(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)
	ctx := context.Background()

	_, err := s.Register(ctx, "a@x.io", "h1", false)
	require.NoError(t, err)

	tests := []struct {
		name  string
		email string
		hash  string
	}{
		{"wrong hash", "a@x.io", "nope"},
		{"unknown email", "b@x.io", "h1"},
		{"empty hash", "a@x.io", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Login(ctx, tt.email, tt.hash)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, common.ErrInvalidCredentials)
		})
	}
}

func TestLogin_StorageError(t *testing.T) {
	store := newMemStore()
	store.getErr = errBoom{}
	s := newUserService(t, store, nil)

	_, err := s.Login(context.Background(), "a@x.io", "h1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrInvalidCredentials))
	assert.ErrorIs(t, err, errBoom{})
}

func TestFindByEmail(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)
	ctx := context.Background()

	_, err := s.FindByEmail(ctx, "a@x.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Register(ctx, "a@x.io", "h1", false)
	require.NoError(t, err)

	u, err := s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "h1", u.CredentialHash)
}

func TestAuthenticate_Rejections(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	t.Run("expired token", func(t *testing.T) {
		tokens := auth.NewTokenService("k", time.Nanosecond)
		s := newUserService(t, store, tokens)

		reg, err := s.Register(ctx, "exp@x.io", "h", false)
		require.NoError(t, err)

		_, err = s.Authenticate(ctx, reg.AccessToken)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
		assert.ErrorIs(t, err, common.ErrTokenExpired)
	})

	t.Run("garbage token", func(t *testing.T) {
		s := newUserService(t, store, nil)
		_, err := s.Authenticate(ctx, "not-a-token")
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other := auth.NewTokenService("other", time.Hour)
		tok, err := other.Issue(uuid.NewString())
		require.NoError(t, err)

		s := newUserService(t, store, nil)
		_, err = s.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		tokens := auth.NewTokenService("k", time.Hour)
		tok, err := tokens.Issue("u1")
		require.NoError(t, err)

		s := newUserService(t, store, tokens)
		_, err = s.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("user no longer exists", func(t *testing.T) {
		tokens := auth.NewTokenService("k", time.Hour)
		tok, err := tokens.Issue(uuid.NewString())
		require.NoError(t, err)

		s := newUserService(t, store, tokens)
		_, err = s.Authenticate(ctx, tok)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})
}

func TestAuthenticate_StorageErrorIsNotUnauthenticated(t *testing.T) {
	store := newMemStore()
	tokens := auth.NewTokenService("k", time.Hour)
	s := newUserService(t, store, tokens)

	tok, err := tokens.Issue(uuid.NewString())
	require.NoError(t, err)

	store.getErr = errBoom{}
	_, err = s.Authenticate(context.Background(), tok)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrUnauthenticated))
}

func TestUpgradePremium(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@x.io", "h1", false)
	require.NoError(t, err)

	require.NoError(t, s.UpgradePremium(ctx, reg.User.ID))
	require.NoError(t, s.UpgradePremium(ctx, reg.User.ID))

	u, err := s.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.True(t, u.IsPremium)

	assert.ErrorIs(t, s.UpgradePremium(ctx, uuid.NewString()), common.ErrorNotFound)
}

func TestRecoverWithBiometric(t *testing.T) {
	ctx := context.Background()

	t.Run("not enabled", func(t *testing.T) {
		store := newMemStore()
		s := newUserService(t, store, nil)
		_, err := s.Register(ctx, "a@x.io", "h1", false)
		require.NoError(t, err)

		err = s.RecoverWithBiometric(ctx, "a@x.io", "h2")
		assert.ErrorIs(t, err, common.ErrBiometricNotEnabled)

		_, err = s.Login(ctx, "a@x.io", "h1")
		assert.NoError(t, err)
	})

	t.Run("enabled overwrites hash", func(t *testing.T) {
		store := newMemStore()
		s := newUserService(t, store, nil)
		_, err := s.Register(ctx, "a@x.io", "h1", true)
		require.NoError(t, err)

		require.NoError(t, s.RecoverWithBiometric(ctx, "a@x.io", "h2"))

		_, err = s.Login(ctx, "a@x.io", "h1")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
		_, err = s.Login(ctx, "a@x.io", "h2")
		assert.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		s := newUserService(t, newMemStore(), nil)
		err := s.RecoverWithBiometric(ctx, "ghost@x.io", "h2")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestProfile(t *testing.T) {
	store := newMemStore()
	s := newUserService(t, store, nil)
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@x.io", "h1", false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, &models.VaultItem{ID: uuid.NewString(), OwnerID: reg.User.ID}))
	}
	require.NoError(t, store.Create(ctx, &models.VaultItem{ID: uuid.NewString(), OwnerID: "someone-else"}))

	p, err := s.Profile(ctx, reg.User)
	require.NoError(t, err)
	assert.Equal(t, 3, p.VaultItemsCount)
	assert.Equal(t, reg.User.ID, p.User.ID)

	store.countErr = errBoom{}
	_, err = s.Profile(ctx, reg.User)
	assert.ErrorIs(t, err, errBoom{})
}
