package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/model"
	"github.com/cargoflow/cargoflow/internal/repository"
)

// WarehouseHandler serves warehouse agents: the preparation backlog and the
// prepare transition.
type WarehouseHandler struct {
	Deliveries *repository.DeliveryRepo
}

func NewWarehouseHandler(deliveries *repository.DeliveryRepo) *WarehouseHandler {
	return &WarehouseHandler{Deliveries: deliveries}
}

// Dashboard returns the company's preparation backlog, oldest first.
func (h *WarehouseHandler) Dashboard(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	backlog, err := h.Deliveries.ListByStatus(ctx, companyID, model.DeliveryCreated)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"backlog": backlog})
}

// PrepareDelivery moves a CREATED delivery of the caller's company to
// PREPARED so it becomes eligible for dispatch.
func (h *WarehouseHandler) PrepareDelivery(c echo.Context) error {
	companyID, err := scopedCompanyID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
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
	if d.Status != model.DeliveryCreated {
		return c.JSON(http.StatusConflict, echo.Map{"error": "delivery is not awaiting preparation"})
	}

	if err := h.Deliveries.UpdateStatus(ctx, d.ID, model.DeliveryPrepared); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
