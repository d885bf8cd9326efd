package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/service"
)

// ReservationHandler serves the booking lifecycle and ratings.
type ReservationHandler struct {
	reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

type createReservationReq struct {
	TripID uint64 `json:"trip_id"`
}

func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.TripID == 0 {
		return unprocessable(c, "trip_id is required")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	r, err := h.reservations.Create(ctx, identity(c), req.TripID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List handles GET /api/reservations[?include_cancelled=true].
func (h *ReservationHandler) List(c echo.Context) error {
	include, _ := strconv.ParseBool(c.QueryParam("include_cancelled"))
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.reservations.List(ctx, identity(c), include)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReservationHandler) Get(c echo.Context) error {
	return h.act(c, h.reservations.Get)
}

func (h *ReservationHandler) Confirm(c echo.Context) error {
	return h.act(c, h.reservations.Confirm)
}

func (h *ReservationHandler) Reject(c echo.Context) error {
	return h.act(c, h.reservations.Reject)
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.act(c, h.reservations.Cancel)
}

type reservationAction func(ctx context.Context, who service.Identity, id uint64) (model.ReservationDetail, error)

// act runs one of the id-addressed reservation operations.
func (h *ReservationHandler) act(c echo.Context, fn reservationAction) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	r, err := fn(ctx, identity(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Rate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var in service.RateInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	r, err := h.reservations.Rate(ctx, identity(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}
