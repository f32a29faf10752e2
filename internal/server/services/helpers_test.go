package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/dbx"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/users"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/vaultitems"
)

// memStore is an in-memory users and vault items store with the same
// observable semantics as the PostgreSQL repositories.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	items map[string]*models.VaultItem

	// injected failures
	upsertErr error
	getErr    error
	countErr  error
	listErr   error
	createErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*models.User),
		items: make(map[string]*models.VaultItem),
	}
}

func (m *memStore) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			existing.CredentialHash = u.CredentialHash
			existing.BiometricEnabled = u.BiometricEnabled
			cp := *existing
			return &cp, nil
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) SetPremium(ctx context.Context, id string, premium bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsPremium = premium
	return nil
}

func (m *memStore) UpdateCredentialHash(ctx context.Context, id string, credentialHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.CredentialHash = credentialHash
	return nil
}

func (m *memStore) List(ctx context.Context, ownerID string) ([]*models.VaultItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.VaultItem, 0)
	for _, it := range m.items {
		if it.OwnerID == ownerID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) Count(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, it := range m.items {
		if it.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Create(ctx context.Context, item *models.VaultItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memStore) Update(ctx context.Context, ownerID, itemID, encryptedPayload string, updatedAt time.Time) (*models.VaultItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	it, ok := m.items[itemID]
	if !ok || it.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	it.EncryptedPayload = encryptedPayload
	it.UpdatedAt = updatedAt
	cp := *it
	return &cp, nil
}

func (m *memStore) Delete(ctx context.Context, ownerID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(m.items, itemID)
	return nil
}

type fakeRepoManager struct {
	s *memStore
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return f.s }
func (f *fakeRepoManager) VaultItems(db dbx.DBTX) vaultitems.Repository { return f.s }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
