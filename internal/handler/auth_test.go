package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cargoflow/cargoflow/internal/auth"
	"github.com/cargoflow/cargoflow/internal/config"
	"github.com/cargoflow/cargoflow/internal/model"
	"github.com/cargoflow/cargoflow/internal/repository"
	"github.com/cargoflow/cargoflow/internal/utils"
)

// ----- in-memory fakes -----

// memUsers backs TenantAccounts and auth.TenantStore with a map so the full
// login/refresh cycle runs without a database.
type memUsers struct {
	mu      sync.Mutex
	nextID  uint64
	byEmail map[string]model.User
	byID    map[uint64]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byEmail: map[string]model.User{}, byID: map[uint64]model.User{}}
}

func (m *memUsers) put(u model.User) {
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
}

func (m *memUsers) Create(ctx context.Context, email, password, role string, companyID uint64, firstName, lastName, phone string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := model.User{
		ID: m.nextID, Email: email, PasswordHash: hash, Role: role,
		FirstName: firstName, LastName: lastName, Phone: phone, IsActive: true,
	}
	if companyID != 0 {
		u.CompanyID = sql.NullInt64{Int64: int64(companyID), Valid: true}
	}
	m.nextID++
	m.put(u)
	return u.ID, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type memOwners struct {
	byEmail map[string]model.PlatformOwner
	byID    map[uint64]model.PlatformOwner
}

func newMemOwners() *memOwners {
	return &memOwners{byEmail: map[string]model.PlatformOwner{}, byID: map[uint64]model.PlatformOwner{}}
}

func (m *memOwners) put(o model.PlatformOwner) {
	m.byEmail[o.Email] = o
	m.byID[o.ID] = o
}

func (m *memOwners) GetOwnerByEmail(ctx context.Context, email string) (model.PlatformOwner, error) {
	o, ok := m.byEmail[email]
	if !ok {
		return model.PlatformOwner{}, repository.ErrNotFound
	}
	return o, nil
}

func (m *memOwners) GetOwnerByID(ctx context.Context, id uint64) (model.PlatformOwner, error) {
	o, ok := m.byID[id]
	if !ok {
		return model.PlatformOwner{}, repository.ErrNotFound
	}
	return o, nil
}

// memTokens implements auth.TokenStore over a map, including the
// exactly-one-row rotation rule.
type memTokens struct {
	mu   sync.Mutex
	recs map[string]model.RefreshToken
}

func newMemTokens() *memTokens { return &memTokens{recs: map[string]model.RefreshToken{}} }

func (m *memTokens) Store(ctx context.Context, rec model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.TokenHash] = rec
	return nil
}

func (m *memTokens) FindByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[hash]
	if !ok {
		return model.RefreshToken{}, repository.ErrTokenNotFound
	}
	return rec, nil
}

func (m *memTokens) Rotate(ctx context.Context, oldHash string, rec model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[oldHash]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(m.recs, oldHash)
	m.recs[rec.TokenHash] = rec
	return nil
}

func (m *memTokens) DeleteByHash(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, hash)
	return nil
}

func (m *memTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, rec := range m.recs {
		if !now.Before(rec.ExpiresAt) {
			delete(m.recs, hash)
			n++
		}
	}
	return n, nil
}

// ----- fixture -----

type authFixture struct {
	h      *AuthHandler
	e      *echo.Echo
	users  *memUsers
	owners *memOwners
	tokens *memTokens
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := config.Config{
		Env:           "dev",
		AccessSecret:  "handler-access-secret",
		RefreshSecret: "handler-refresh-secret",
		BcryptCost:    bcrypt.MinCost,
	}
	codec := auth.NewCodec(cfg.AccessSecret, cfg.RefreshSecret)
	users := newMemUsers()
	owners := newMemOwners()
	tokens := newMemTokens()
	sessions := auth.NewSessionManager(codec, tokens, users, owners)
	return &authFixture{
		h:      NewAuthHandler(cfg, users, owners, sessions, codec),
		e:      echo.New(),
		users:  users,
		owners: owners,
		tokens: tokens,
	}
}

func (f *authFixture) seedTenant(t *testing.T, email, password, role string, companyID uint64, active bool) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{
		ID: f.users.nextID, Email: email, PasswordHash: hash, Role: role,
		FirstName: "Test", LastName: "User", IsActive: active,
	}
	if companyID != 0 {
		u.CompanyID = sql.NullInt64{Int64: int64(companyID), Valid: true}
	}
	f.users.nextID++
	f.users.put(u)
	return u
}

func (f *authFixture) seedOwner(t *testing.T, email, password string) model.PlatformOwner {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	o := model.PlatformOwner{ID: 1, Email: email, PasswordHash: hash, Name: "Root"}
	f.owners.put(o)
	return o
}

func (f *authFixture) do(t *testing.T, handler echo.HandlerFunc, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, handler(f.e.NewContext(req, rec)))
	return rec
}

func cookieMap(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func decodeAuthResp(t *testing.T, rec *httptest.ResponseRecorder) authResp {
	t.Helper()
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ----- login -----

func TestLoginTenantSuccess(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "admin@acme.test", "secret1", model.RoleCompanyAdmin, 7, true)

	rec := f.do(t, f.h.Login, `{"email":"Admin@Acme.Test","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeAuthResp(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "admin@acme.test", resp.User.Email)
	assert.Equal(t, model.RoleCompanyAdmin, resp.User.Role)
	require.NotNil(t, resp.User.CompanyID)
	assert.Equal(t, uint64(7), *resp.User.CompanyID)

	cookies := cookieMap(rec)
	require.NotNil(t, cookies[auth.AccessCookie])
	require.NotNil(t, cookies[auth.RefreshCookie])
	assert.Equal(t, auth.SessionActive, cookies[auth.SessionCookie].Value)
	assert.False(t, cookies[auth.AccessCookie].Secure, "dev env issues non-secure cookies")

	// The stored record is the hash of the refresh cookie value.
	hash := auth.HashTokenValue(cookies[auth.RefreshCookie].Value)
	_, err := f.tokens.FindByHash(context.Background(), hash)
	assert.NoError(t, err)
}

func TestLoginOwnerFallback(t *testing.T) {
	f := newAuthFixture(t)
	f.seedOwner(t, "root@cargoflow.test", "secret1")

	rec := f.do(t, f.h.Login, `{"email":"root@cargoflow.test","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAuthResp(t, rec)
	assert.Equal(t, model.RoleOwner, resp.User.Role)
	assert.Nil(t, resp.User.CompanyID)
}

func TestLoginTenantShadowsOwner(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "dual@cargoflow.test", "tenant-pw", model.RoleDriver, 7, true)
	f.seedOwner(t, "dual@cargoflow.test", "owner-pw")

	// The tenant row wins; the owner's password no longer opens anything.
	rec := f.do(t, f.h.Login, `{"email":"dual@cargoflow.test","password":"owner-pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, f.h.Login, `{"email":"dual@cargoflow.test","password":"tenant-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleDriver, decodeAuthResp(t, rec).User.Role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "admin@acme.test", "secret1", model.RoleCompanyAdmin, 7, true)

	unknown := f.do(t, f.h.Login, `{"email":"ghost@acme.test","password":"secret1"}`)
	wrongPw := f.do(t, f.h.Login, `{"email":"admin@acme.test","password":"wrong-pw"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.JSONEq(t, unknown.Body.String(), wrongPw.Body.String())
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "gone@acme.test", "secret1", model.RoleDriver, 7, false)

	rec := f.do(t, f.h.Login, `{"email":"gone@acme.test","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	f := newAuthFixture(t)

	for _, body := range []string{
		`{"email":"not-an-email","password":"secret1"}`,
		`{"email":"a@b.test","password":"short"}`,
		`{}`,
	} {
		rec := f.do(t, f.h.Login, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

// ----- register -----

func TestRegisterThenLogin(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, f.h.Register,
		`{"email":"new@acme.test","password":"secret1","firstName":"Ada","lastName":"Byron","role":"company_admin","companyId":7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeAuthResp(t, rec)
	assert.Equal(t, model.RoleCompanyAdmin, resp.User.Role)
	assert.Equal(t, "Ada", resp.User.FirstName)
	require.NotNil(t, cookieMap(rec)[auth.RefreshCookie])

	login := f.do(t, f.h.Login, `{"email":"new@acme.test","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedTenant(t, "taken@acme.test", "secret1", model.RoleDriver, 7, true)

	rec := f.do(t, f.h.Register,
		`{"email":"taken@acme.test","password":"secret1","firstName":"A","lastName":"B","role":"DRIVER","companyId":7}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsOwnerRole(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, f.h.Register,
		`{"email":"evil@acme.test","password":"secret1","firstName":"A","lastName":"B","role":"OWNER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	for _, body := range []string{
		`{"email":"bad","password":"secret1","firstName":"A","lastName":"B","role":"DRIVER"}`,
		`{"email":"a@b.test","password":"12345","firstName":"A","lastName":"B","role":"DRIVER"}`,
		`{"email":"a@b.test","password":"secret1","firstName":"","lastName":"B","role":"DRIVER"}`,
		`{"email":"a@b.test","password":"secret1","firstName":"A","lastName":"B","role":"JANITOR"}`,
	} {
		rec := f.do(t, f.h.Register, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

// ----- refresh -----

func loginCookies(t *testing.T, f *authFixture) map[string]*http.Cookie {
	t.Helper()
	f.seedTenant(t, "admin@acme.test", "secret1", model.RoleCompanyAdmin, 7, true)
	rec := f.do(t, f.h.Login, `{"email":"admin@acme.test","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	return cookieMap(rec)
}

func TestRefreshRotatesCookiePair(t *testing.T) {
	f := newAuthFixture(t)
	first := loginCookies(t, f)

	rec := f.do(t, f.h.Refresh, "", first[auth.RefreshCookie])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	second := cookieMap(rec)
	require.NotNil(t, second[auth.RefreshCookie])
	assert.NotEqual(t, first[auth.RefreshCookie].Value, second[auth.RefreshCookie].Value)
	assert.Positive(t, second[auth.AccessCookie].MaxAge)
}

func TestRefreshOldTokenIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	first := loginCookies(t, f)

	ok := f.do(t, f.h.Refresh, "", first[auth.RefreshCookie])
	require.Equal(t, http.StatusOK, ok.Code)

	// Replaying the consumed token fails and clears the cookies.
	replay := f.do(t, f.h.Refresh, "", first[auth.RefreshCookie])
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	for _, ck := range cookieMap(replay) {
		assert.Negative(t, ck.MaxAge)
	}

	// The rotated token from the first call still works.
	next := f.do(t, f.h.Refresh, "", cookieMap(ok)[auth.RefreshCookie])
	assert.Equal(t, http.StatusOK, next.Code)
}

func TestRefreshWithoutCookie(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, f.h.Refresh, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	for _, ck := range cookieMap(rec) {
		assert.Negative(t, ck.MaxAge)
	}
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, f.h.Refresh, "", &http.Cookie{Name: auth.RefreshCookie, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ----- logout -----

func TestLogoutDeletesSessionAndIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	cookies := loginCookies(t, f)
	refresh := cookies[auth.RefreshCookie]

	rec := f.do(t, f.h.Logout, "", refresh)
	assert.Equal(t, http.StatusOK, rec.Code)
	for _, ck := range cookieMap(rec) {
		assert.Negative(t, ck.MaxAge)
	}

	// The record is gone, so renewal with the same value now fails.
	renew := f.do(t, f.h.Refresh, "", refresh)
	assert.Equal(t, http.StatusUnauthorized, renew.Code)

	// A second logout, and one with no cookie at all, still answer 200.
	assert.Equal(t, http.StatusOK, f.do(t, f.h.Logout, "", refresh).Code)
	assert.Equal(t, http.StatusOK, f.do(t, f.h.Logout, "").Code)
}

// ----- me -----

func TestMeReturnsTenantProfile(t *testing.T) {
	f := newAuthFixture(t)
	cookies := loginCookies(t, f)

	rec := f.do(t, f.h.Me, "", cookies[auth.AccessCookie])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		User userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "admin@acme.test", resp.User.Email)
	assert.Equal(t, model.RoleCompanyAdmin, resp.User.Role)
	require.NotNil(t, resp.User.CompanyID)
	assert.Equal(t, uint64(7), *resp.User.CompanyID)
}

func TestMeReturnsOwnerProfile(t *testing.T) {
	f := newAuthFixture(t)
	f.seedOwner(t, "root@cargoflow.test", "secret1")
	login := f.do(t, f.h.Login, `{"email":"root@cargoflow.test","password":"secret1"}`)
	require.Equal(t, http.StatusOK, login.Code)

	rec := f.do(t, f.h.Me, "", cookieMap(login)[auth.AccessCookie])
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleOwner, resp.User.Role)
	assert.Nil(t, resp.User.CompanyID)
}

func TestMeWithoutOrWithBadToken(t *testing.T) {
	f := newAuthFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, f.h.Me, "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		f.do(t, f.h.Me, "", &http.Cookie{Name: auth.AccessCookie, Value: "garbage"}).Code)
}

func TestMeMissingRowIs404(t *testing.T) {
	f := newAuthFixture(t)
	codec := auth.NewCodec("handler-access-secret", "handler-refresh-secret")
	token, _, err := codec.Issue(auth.KindAccess, 999, "ghost@acme.test", model.RoleDriver, 7)
	require.NoError(t, err)

	rec := f.do(t, f.h.Me, "", &http.Cookie{Name: auth.AccessCookie, Value: token})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
