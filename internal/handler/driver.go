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

// DriverHandler serves drivers: their assigned deliveries and the final
// delivered transition. Drivers only ever see and touch their own work.
type DriverHandler struct {
	Deliveries *repository.DeliveryRepo
}

func NewDriverHandler(deliveries *repository.DeliveryRepo) *DriverHandler {
	return &DriverHandler{Deliveries: deliveries}
}

// Dashboard returns the deliveries assigned to the calling driver.
func (h *DriverHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	deliveries, err := h.Deliveries.ListByDriver(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deliveries": deliveries})
}

// CompleteDelivery marks one of the caller's dispatched deliveries as
// DELIVERED.
func (h *DriverHandler) CompleteDelivery(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Deliveries.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "delivery not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !d.DriverID.Valid || uint64(d.DriverID.Int64) != currentUserID(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "delivery not found"})
	}
	if d.Status != model.DeliveryDispatched {
		return c.JSON(http.StatusConflict, echo.Map{"error": "delivery is not out for delivery"})
	}

	if err := h.Deliveries.UpdateStatus(ctx, d.ID, model.DeliveryDelivered); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
