package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/auth"
	"github.com/cargoflow/cargoflow/internal/config"
	"github.com/cargoflow/cargoflow/internal/model"
	"github.com/cargoflow/cargoflow/internal/queue"
	"github.com/cargoflow/cargoflow/internal/repository"
	queue_publisher "github.com/cargoflow/cargoflow/internal/service"
	"github.com/cargoflow/cargoflow/internal/utils"
)

// invalidCredentials is returned for both unknown email and wrong password
// so responses cannot be used to enumerate accounts.
const invalidCredentials = "invalid email or password"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TenantAccounts is the slice of the user repository the auth endpoints
// need. Implemented by repository.UserRepo.
type TenantAccounts interface {
	Create(ctx context.Context, email, password, role string, companyID uint64, firstName, lastName, phone string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// OwnerAccounts resolves platform owners. Implemented by repository.OwnerRepo.
type OwnerAccounts interface {
	GetOwnerByEmail(ctx context.Context, email string) (model.PlatformOwner, error)
	GetOwnerByID(ctx context.Context, id uint64) (model.PlatformOwner, error)
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    TenantAccounts
	Owners   OwnerAccounts
	Sessions *auth.SessionManager
	Codec    *auth.Codec
}

func NewAuthHandler(cfg config.Config, users TenantAccounts, owners OwnerAccounts, sessions *auth.SessionManager, codec *auth.Codec) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Owners: owners, Sessions: sessions, Codec: codec}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CompanyID uint64 `json:"companyId"`
}

type userPart struct {
	ID        uint64  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	CompanyID *uint64 `json:"companyId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
}

type authResp struct {
	Success bool     `json:"success"`
	User    userPart `json:"user"`
}

func companyRef(id uint64) *uint64 {
	if id == 0 {
		return nil
	}
	return &id
}

// Login authenticates a principal against the users table first and the
// platform_owners table second, creates a session and sets the auth
// cookies. Tenant lookup wins when an email exists in both tables.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(req.Email) || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email must be valid and password at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		id        uint64
		role      string
		companyID uint64
		firstName string
		lastName  string
	)

	u, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		// Inactive accounts are rejected before the password check; the
		// caller holding the right password changes nothing.
		if !u.IsActive {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
		}
		if !utils.VerifyPassword(u.PasswordHash, req.Password) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
		}
		id, role, companyID = u.ID, u.Role, u.CompanyRef()
		firstName, lastName = u.FirstName, u.LastName
	case errors.Is(err, repository.ErrNotFound):
		o, oerr := h.Owners.GetOwnerByEmail(ctx, req.Email)
		if errors.Is(oerr, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
		}
		if oerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !utils.VerifyPassword(o.PasswordHash, req.Password) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
		}
		id, role = o.ID, model.RoleOwner
		firstName, lastName = o.Name, ""
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	pair, err := h.Sessions.Create(ctx, id, req.Email, role, companyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	auth.SetAuthCookies(c, pair, h.Cfg.IsProd())

	go publishLogin(id, req.Email, role, companyID)

	return c.JSON(http.StatusOK, authResp{
		Success: true,
		User: userPart{
			ID: id, Email: req.Email, Role: role,
			CompanyID: companyRef(companyID),
			FirstName: firstName, LastName: lastName,
		},
	})
}

// Register creates a tenant user and logs them in immediately. Platform
// owners are seeded out of band and cannot self-register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))

	if !emailPattern.MatchString(req.Email) || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email must be valid and password at least 6 characters"})
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firstName and lastName are required"})
	}
	if !model.IsTenantRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be COMPANY_ADMIN, WAREHOUSE_AGENT or DRIVER"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, req.Role, req.CompanyID,
		strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), strings.TrimSpace(req.Phone), h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	pair, err := h.Sessions.Create(ctx, uid, req.Email, req.Role, req.CompanyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	auth.SetAuthCookies(c, pair, h.Cfg.IsProd())

	return c.JSON(http.StatusCreated, authResp{
		Success: true,
		User: userPart{
			ID: uid, Email: req.Email, Role: req.Role,
			CompanyID: companyRef(req.CompanyID),
			FirstName: strings.TrimSpace(req.FirstName), LastName: strings.TrimSpace(req.LastName),
		},
	})
}

// Refresh rotates the session named by the refreshToken cookie. Any failure
// clears the auth cookies so the client cannot keep presenting a dead pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshToken := auth.ReadRefreshToken(c)
	if refreshToken == "" {
		auth.ClearAuthCookies(c, h.Cfg.IsProd())
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no refresh token provided"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, refreshToken)
	if err != nil {
		auth.ClearAuthCookies(c, h.Cfg.IsProd())
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}
	auth.SetAuthCookies(c, pair, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Logout deletes the server-side session record and clears all three auth
// cookies. It always answers 200: logging out with a missing or already
// deleted token is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_ = h.Sessions.Destroy(ctx, auth.ReadRefreshToken(c))
	auth.ClearAuthCookies(c, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me verifies the access cookie and returns the caller's profile from
// whichever principal table the role selects.
func (h *AuthHandler) Me(c echo.Context) error {
	token := auth.ReadAccessToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}
	payload, err := h.Codec.Verify(token, auth.KindAccess)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var user userPart
	if payload.Role == model.RoleOwner {
		o, oerr := h.Owners.GetOwnerByID(ctx, payload.PrincipalID)
		if errors.Is(oerr, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		if oerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		user = userPart{ID: o.ID, Email: o.Email, Role: model.RoleOwner, FirstName: o.Name}
	} else {
		u, uerr := h.Users.GetByID(ctx, payload.PrincipalID)
		if errors.Is(uerr, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		if uerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		user = userPart{
			ID: u.ID, Email: u.Email, Role: u.Role,
			CompanyID: companyRef(u.CompanyRef()),
			FirstName: u.FirstName, LastName: u.LastName,
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// publishLogin sends the audit event on its own short-lived context; a
// broker outage never affects the login response.
func publishLogin(id uint64, email, role string, companyID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queue_publisher.PublishLogin(ctx, queue.LoginEvent{
		PrincipalID: id,
		Email:       email,
		Role:        role,
		CompanyID:   companyID,
		LoginAt:     time.Now().UTC().Format(time.RFC3339),
	})
}
