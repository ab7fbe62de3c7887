package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/model"
	"github.com/cargoflow/cargoflow/internal/repository"
)

// PlatformHandler serves the OWNER-only surface: the platform dashboard and
// company administration.
type PlatformHandler struct {
	Companies  *repository.CompanyRepo
	Users      *repository.UserRepo
	Deliveries *repository.DeliveryRepo
}

func NewPlatformHandler(companies *repository.CompanyRepo, users *repository.UserRepo, deliveries *repository.DeliveryRepo) *PlatformHandler {
	return &PlatformHandler{Companies: companies, Users: users, Deliveries: deliveries}
}

type companyReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Dashboard returns platform-wide counts.
func (h *PlatformHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	companies, err := h.Companies.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	users, err := h.Users.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	deliveries, err := h.Deliveries.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"companies":  companies,
		"users":      users,
		"deliveries": deliveries,
	})
}

// ListCompanies returns all companies.
func (h *PlatformHandler) ListCompanies(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	companies, err := h.Companies.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"companies": companies})
}

// CreateCompany onboards a new tenant company.
func (h *PlatformHandler) CreateCompany(c echo.Context) error {
	var req companyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and email are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	company := model.Company{Name: req.Name, Email: req.Email, Address: req.Address, Phone: req.Phone}
	if err := h.Companies.Create(ctx, &company); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create company failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"company": company})
}
