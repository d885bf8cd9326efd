package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/service"
)

// TripHandler serves trip publishing, search and estimates.
type TripHandler struct {
	trips *service.TripService
}

func NewTripHandler(trips *service.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

// Search handles GET /api/trips.  Anonymous callers are allowed; a signed-in
// driver does not see their own trips.
func (h *TripHandler) Search(c echo.Context) error {
	in := service.SearchInput{
		DepartureCity:   c.QueryParam("departure_city"),
		DestinationCity: c.QueryParam("destination_city"),
		DateFrom:        c.QueryParam("date_from"),
		DateTo:          c.QueryParam("date_to"),
	}
	var bad string
	if in.Page, in.Limit, bad = pageParams(c); bad != "" {
		return unprocessable(c, bad+" must be an integer")
	}
	var ok bool
	if in.MinSeats, ok = queryInt(c, "min_seats"); !ok {
		return unprocessable(c, "min_seats must be an integer")
	}
	if in.MinPrice, ok = queryFloat(c, "min_price"); !ok {
		return badRequest(c, "min_price must be a number")
	}
	if in.MaxPrice, ok = queryFloat(c, "max_price"); !ok {
		return badRequest(c, "max_price must be a number")
	}

	ctx, cancel := timeout(c)
	defer cancel()
	page, err := h.trips.Search(ctx, optionalIdentity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TripHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	t, err := h.trips.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TripHandler) Mine(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.trips.Mine(ctx, identity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TripHandler) Create(c echo.Context) error {
	var in service.TripInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	created, err := h.trips.Create(ctx, identity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *TripHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	var in service.UpdateInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	t, err := h.trips.Update(ctx, identity(c), id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TripHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid trip id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.trips.Delete(ctx, identity(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "trip deleted"})
}

// EstimatePrice handles GET /api/trips/estimate/price?from=&to=.
func (h *TripHandler) EstimatePrice(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	e, err := h.trips.EstimatePrice(ctx, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *TripHandler) EstimateTime(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	e, err := h.trips.EstimateTime(ctx, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}
