package handler

import (
	"context"
	"net/http"
	"strconv"

	"booking-pricing/internal/dto"
	"booking-pricing/internal/middleware"
	"booking-pricing/internal/model"
	"booking-pricing/internal/service"

	"github.com/labstack/echo/v4"
)

type SnapshotHandler struct {
	snapshotService service.SnapshotService
}

func NewSnapshotHandler(snapshotService service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
	}
}

type createFunc func(ctx context.Context, req service.SnapshotRequest) (*model.BookingPriceSnapshot, error)

func (h *SnapshotHandler) CreateFromBasket(c echo.Context) error {
	return h.create(c, h.snapshotService.CreateSnapshotFromBasket)
}

func (h *SnapshotHandler) CreateFromCalculator(c echo.Context) error {
	return h.create(c, h.snapshotService.CreateSnapshotFromCalculator)
}

func (h *SnapshotHandler) create(c echo.Context, fn createFunc) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}

	var req dto.CreateSnapshotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snapshot, err := fn(ctx, service.SnapshotRequest{
		BookingID: bookingID,
		ActorID:   middleware.ActorID(c),
		Source:    req.Source,
		Note:      req.Note,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, snapshot)
}

func (h *SnapshotHandler) CreateManual(c echo.Context) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}

	var req dto.ManualSnapshotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snapshot, err := h.snapshotService.CreateManualSnapshot(ctx, service.SnapshotRequest{
		BookingID: bookingID,
		ActorID:   middleware.ActorID(c),
		Source:    req.Source,
		Note:      req.Note,
	}, req.Overrides)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, snapshot)
}

func (h *SnapshotHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}

	snapshots, err := h.snapshotService.ListSnapshots(ctx, bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.SnapshotListResponse{
		BookingID: bookingID,
		Snapshots: snapshots,
	})
}

func (h *SnapshotHandler) Latest(c echo.Context) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}

	snapshot, err := h.snapshotService.GetLatestSnapshot(ctx, bookingID)
	if err != nil {
		return toHTTPError(err)
	}
	if snapshot == nil {
		return echo.NewHTTPError(http.StatusNotFound, "booking has no price snapshot")
	}

	return c.JSON(http.StatusOK, snapshot)
}

func (h *SnapshotHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid version")
	}

	snapshot, err := h.snapshotService.GetSnapshot(ctx, bookingID, version)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, snapshot)
}

func (h *SnapshotHandler) ListAudits(c echo.Context) error {
	ctx := c.Request().Context()

	bookingID, err := bookingIDParam(c)
	if err != nil {
		return err
	}

	audits, err := h.snapshotService.ListAudits(ctx, bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.AuditListResponse{
		BookingID: bookingID,
		Audits:    audits,
	})
}
