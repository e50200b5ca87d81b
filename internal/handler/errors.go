package handler

import (
	"errors"
	"net/http"
	"strconv"

	"booking-pricing/internal/service"

	"github.com/labstack/echo/v4"
)

// toHTTPError maps service sentinels; anything else is left for echo's
// default 500 handling.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrBookingNotFound), errors.Is(err, service.ErrSnapshotNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSnapshotBusy), errors.Is(err, service.ErrSnapshotConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidSource):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func bookingIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	return uint(id), nil
}
