package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/cargoflow/internal/model"
)

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Store(ctx context.Context, rec model.RefreshToken) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockTokenStore) FindByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *mockTokenStore) Rotate(ctx context.Context, oldHash string, rec model.RefreshToken) error {
	return m.Called(ctx, oldHash, rec).Error(0)
}

func (m *mockTokenStore) DeleteByHash(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}

func (m *mockTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockTenantStore struct{ mock.Mock }

func (m *mockTenantStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type mockOwnerStore struct{ mock.Mock }

func (m *mockOwnerStore) GetOwnerByID(ctx context.Context, id uint64) (model.PlatformOwner, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PlatformOwner), args.Error(1)
}

func newTestManager() (*SessionManager, *mockTokenStore, *mockTenantStore, *mockOwnerStore) {
	tokens := new(mockTokenStore)
	users := new(mockTenantStore)
	owners := new(mockOwnerStore)
	return NewSessionManager(newTestCodec(), tokens, users, owners), tokens, users, owners
}

func activeTenant() model.User {
	return model.User{
		ID:        42,
		Email:     "agent@acme.test",
		Role:      model.RoleWarehouseAgent,
		CompanyID: sql.NullInt64{Int64: 7, Valid: true},
		IsActive:  true,
	}
}

func TestCreateStoresTenantRecord(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()

	var stored model.RefreshToken
	tokens.On("Store", mock.Anything, mock.AnythingOfType("model.RefreshToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(model.RefreshToken) }).
		Return(nil)

	pair, err := mgr.Create(context.Background(), 42, "agent@acme.test", model.RoleWarehouseAgent, 7)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	assert.Equal(t, model.OwnerKindTenant, stored.OwnerKind)
	assert.Equal(t, uint64(42), stored.OwnerID)
	assert.Equal(t, HashTokenValue(pair.RefreshToken), stored.TokenHash)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
	tokens.AssertExpectations(t)
}

func TestCreateStoresPlatformRecordForOwner(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()

	var stored model.RefreshToken
	tokens.On("Store", mock.Anything, mock.AnythingOfType("model.RefreshToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(model.RefreshToken) }).
		Return(nil)

	_, err := mgr.Create(context.Background(), 1, "root@cargoflow.test", model.RoleOwner, 0)
	require.NoError(t, err)
	assert.Equal(t, model.OwnerKindPlatform, stored.OwnerKind)
}

func TestCreatePropagatesStoreFailure(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()
	tokens.On("Store", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := mgr.Create(context.Background(), 42, "agent@acme.test", model.RoleWarehouseAgent, 7)
	assert.Error(t, err)
}

// issueRefresh builds a valid refresh token plus its stored record, as Create
// would have left them.
func issueRefresh(t *testing.T, mgr *SessionManager, kind string, ownerID uint64) (string, model.RefreshToken) {
	t.Helper()
	value, exp, err := mgr.codec.Issue(KindRefresh, ownerID, "agent@acme.test", model.RoleWarehouseAgent, 7)
	require.NoError(t, err)
	return value, model.RefreshToken{
		TokenHash: HashTokenValue(value),
		OwnerKind: kind,
		OwnerID:   ownerID,
		ExpiresAt: exp,
	}
}

func TestRefreshRotatesTenantSession(t *testing.T) {
	mgr, tokens, users, _ := newTestManager()
	old, rec := issueRefresh(t, mgr, model.OwnerKindTenant, 42)

	tokens.On("FindByHash", mock.Anything, rec.TokenHash).Return(rec, nil)
	users.On("GetByID", mock.Anything, uint64(42)).Return(activeTenant(), nil)

	var rotated model.RefreshToken
	tokens.On("Rotate", mock.Anything, rec.TokenHash, mock.AnythingOfType("model.RefreshToken")).
		Run(func(args mock.Arguments) { rotated = args.Get(2).(model.RefreshToken) }).
		Return(nil)

	pair, err := mgr.Refresh(context.Background(), old)
	require.NoError(t, err)
	assert.NotEqual(t, old, pair.RefreshToken)
	assert.Equal(t, HashTokenValue(pair.RefreshToken), rotated.TokenHash)
	assert.Equal(t, model.OwnerKindTenant, rotated.OwnerKind)
	assert.Equal(t, uint64(42), rotated.OwnerID)

	p, err := mgr.codec.Verify(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.PrincipalID)
	assert.Equal(t, model.RoleWarehouseAgent, p.Role)
	assert.Equal(t, uint64(7), p.CompanyID)
	tokens.AssertExpectations(t)
}

func TestRefreshResolvesPlatformOwner(t *testing.T) {
	mgr, tokens, _, owners := newTestManager()
	old, rec := issueRefresh(t, mgr, model.OwnerKindPlatform, 1)

	tokens.On("FindByHash", mock.Anything, rec.TokenHash).Return(rec, nil)
	owners.On("GetOwnerByID", mock.Anything, uint64(1)).
		Return(model.PlatformOwner{ID: 1, Email: "root@cargoflow.test", Name: "Root"}, nil)
	tokens.On("Rotate", mock.Anything, rec.TokenHash, mock.Anything).Return(nil)

	pair, err := mgr.Refresh(context.Background(), old)
	require.NoError(t, err)

	p, err := mgr.codec.Verify(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, p.Role)
	assert.Zero(t, p.CompanyID)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()

	_, err := mgr.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrSessionExpired)
	tokens.AssertNotCalled(t, "FindByHash", mock.Anything, mock.Anything)
}

func TestRefreshRejectsAccessTokenAsRefresh(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()
	access, _, err := mgr.codec.Issue(KindAccess, 42, "agent@acme.test", model.RoleWarehouseAgent, 7)
	require.NoError(t, err)

	_, err = mgr.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, ErrSessionExpired)
	tokens.AssertNotCalled(t, "FindByHash", mock.Anything, mock.Anything)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()
	old, rec := issueRefresh(t, mgr, model.OwnerKindTenant, 42)

	tokens.On("FindByHash", mock.Anything, rec.TokenHash).
		Return(model.RefreshToken{}, errors.New("token not found"))

	_, err := mgr.Refresh(context.Background(), old)
	assert.ErrorIs(t, err, ErrSessionExpired)
	tokens.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshSweepsStaleRecord(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()
	old, rec := issueRefresh(t, mgr, model.OwnerKindTenant, 42)
	rec.ExpiresAt = time.Now().UTC().Add(-time.Hour)

	tokens.On("FindByHash", mock.Anything, rec.TokenHash).Return(rec, nil)
	tokens.On("DeleteByHash", mock.Anything, rec.TokenHash).Return(nil)

	_, err := mgr.Refresh(context.Background(), old)
	assert.ErrorIs(t, err, ErrSessionExpired)
	tokens.AssertExpectations(t)
}

func TestRefreshRejectsInactiveTenant(t *testing.T) {
	mgr, tokens, users, _ := newTestManager()
	old, rec := issueRefresh(t, mgr, model.OwnerKindTenant, 42)

	disabled := activeTenant()
	disabled.IsActive = false
	tokens.On("FindByHash", mock.Anything, rec.TokenHash).Return(rec, nil)
	users.On("GetByID", mock.Anything, uint64(42)).Return(disabled, nil)

	_, err := mgr.Refresh(context.Background(), old)
	assert.ErrorIs(t, err, ErrSessionExpired)
	tokens.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshFailsClosedOnLostRotationRace(t *testing.T) {
	mgr, tokens, users, _ := newTestManager()
	old, rec := issueRefresh(t, mgr, model.OwnerKindTenant, 42)

	tokens.On("FindByHash", mock.Anything, rec.TokenHash).Return(rec, nil)
	users.On("GetByID", mock.Anything, uint64(42)).Return(activeTenant(), nil)
	tokens.On("Rotate", mock.Anything, rec.TokenHash, mock.Anything).
		Return(errors.New("token not found"))

	_, err := mgr.Refresh(context.Background(), old)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestDestroyIgnoresEmptyToken(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()

	require.NoError(t, mgr.Destroy(context.Background(), ""))
	tokens.AssertNotCalled(t, "DeleteByHash", mock.Anything, mock.Anything)
}

func TestDestroyDeletesByHash(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()
	tokens.On("DeleteByHash", mock.Anything, HashTokenValue("some-value")).Return(nil)

	require.NoError(t, mgr.Destroy(context.Background(), "some-value"))
	tokens.AssertExpectations(t)
}

func TestCleanupExpiredReportsCount(t *testing.T) {
	mgr, tokens, _, _ := newTestManager()
	tokens.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	n, err := mgr.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
