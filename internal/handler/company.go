package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/model"
	"github.com/cargoflow/cargoflow/internal/queue"
	"github.com/cargoflow/cargoflow/internal/repository"
	queue_publisher "github.com/cargoflow/cargoflow/internal/service"
)

// CompanyHandler serves company administrators: their dashboard, warehouse
// management and the delivery lifecycle up to dispatch.
type CompanyHandler struct {
	Companies  *repository.CompanyRepo
	Warehouses *repository.WarehouseRepo
	Deliveries *repository.DeliveryRepo
	Users      *repository.UserRepo
}

func NewCompanyHandler(companies *repository.CompanyRepo, warehouses *repository.WarehouseRepo, deliveries *repository.DeliveryRepo, users *repository.UserRepo) *CompanyHandler {
	return &CompanyHandler{Companies: companies, Warehouses: warehouses, Deliveries: deliveries, Users: users}
}

type warehouseReq struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

type deliveryReq struct {
	Reference   string `json:"reference"`
	WarehouseID uint64 `json:"warehouseId"`
	Address     string `json:"address"`
}

type dispatchReq struct {
	DriverID uint64 `json:"driverId"`
}

// Dashboard returns the caller's company with its headline numbers.
func (h *CompanyHandler) Dashboard(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	company, err := h.Companies.GetByID(ctx, companyID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "company not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	members, err := h.Users.CountByCompany(ctx, companyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	deliveries, err := h.Deliveries.CountByCompany(ctx, companyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"company":    company,
		"members":    members,
		"deliveries": deliveries,
	})
}

// ListWarehouses returns the company's warehouses.
func (h *CompanyHandler) ListWarehouses(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	warehouses, err := h.Warehouses.ListByCompany(ctx, companyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"warehouses": warehouses})
}

// CreateWarehouse adds a warehouse to the caller's company.
func (h *CompanyHandler) CreateWarehouse(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	var req warehouseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w := model.Warehouse{
		CompanyID:  companyID,
		Name:       strings.TrimSpace(req.Name),
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
	}
	if err := h.Warehouses.Create(ctx, &w); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create warehouse failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"warehouse": w})
}

// ListDeliveries returns the company's deliveries, newest first.
func (h *CompanyHandler) ListDeliveries(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	deliveries, err := h.Deliveries.ListByCompany(ctx, companyID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deliveries": deliveries})
}

// CreateDelivery registers a new shipment out of one of the company's
// warehouses.
func (h *CompanyHandler) CreateDelivery(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	var req deliveryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Reference) == "" || strings.TrimSpace(req.Address) == "" || req.WarehouseID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reference, warehouseId and address are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The warehouse must belong to the caller's company.
	w, err := h.Warehouses.GetByID(ctx, req.WarehouseID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && w.CompanyID != companyID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "warehouse not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	d := model.Delivery{
		Reference:   strings.TrimSpace(req.Reference),
		CompanyID:   companyID,
		WarehouseID: req.WarehouseID,
		Address:     strings.TrimSpace(req.Address),
	}
	if err := h.Deliveries.Create(ctx, &d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create delivery failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"delivery": d})
}

// DispatchDelivery assigns a driver to a prepared delivery and announces it
// on the broker. The delivery must belong to the caller's company and the
// driver must be an active DRIVER of the same company.
func (h *CompanyHandler) DispatchDelivery(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dispatchReq
	if err := c.Bind(&req); err != nil || req.DriverID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "driverId is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Deliveries.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && d.CompanyID != companyID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "delivery not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if d.Status != model.DeliveryPrepared {
		return c.JSON(http.StatusConflict, echo.Map{"error": "delivery is not prepared"})
	}

	driver, err := h.Users.GetByID(ctx, req.DriverID)
	if errors.Is(err, repository.ErrNotFound) ||
		(err == nil && (driver.Role != model.RoleDriver || !driver.IsActive || driver.CompanyRef() != companyID)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "driver not available"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Deliveries.AssignDriver(ctx, d.ID, driver.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dispatch failed"})
	}

	go func(ev queue.DeliveryDispatchedEvent) {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishDeliveryDispatched(pubCtx, ev)
	}(queue.DeliveryDispatchedEvent{
		DeliveryID:   d.ID,
		Reference:    d.Reference,
		CompanyID:    d.CompanyID,
		DriverID:     driver.ID,
		Address:      d.Address,
		DispatchedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
