package handler

import (
	"net/http"

	"booking-pricing/internal/service"

	"github.com/labstack/echo/v4"
)

type PricingHandler struct {
	pricingService service.PricingService
}

func NewPricingHandler(pricingService service.PricingService) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
	}
}

func (h *PricingHandler) GetPrice(c echo.Context) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}

	preview, err := h.pricingService.Preview(ctx, bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, preview)
}
