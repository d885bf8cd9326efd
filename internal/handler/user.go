package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/service"
)

// UserHandler serves public profiles and driver ratings.
type UserHandler struct {
	auth         *service.AuthService
	reservations *service.ReservationService
}

func NewUserHandler(auth *service.AuthService, reservations *service.ReservationService) *UserHandler {
	return &UserHandler{auth: auth, reservations: reservations}
}

func (h *UserHandler) Profile(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	p, err := h.auth.PublicProfile(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *UserHandler) Ratings(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	r, err := h.reservations.DriverRatings(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
