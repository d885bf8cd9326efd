package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/service"
)

// AdminHandler serves driver verification for passengers applying and for
// administrators reviewing.
type AdminHandler struct {
	admin     *service.AdminService
	maxUpload int64
}

func NewAdminHandler(admin *service.AdminService, maxUpload int64) *AdminHandler {
	return &AdminHandler{admin: admin, maxUpload: maxUpload}
}

type reviewReq struct {
	AdminNotes string `json:"admin_notes"`
}

// SubmitRequest handles the multipart POST /api/driver-requests.
func (h *AdminHandler) SubmitRequest(c echo.Context) error {
	if !isMultipart(c) {
		return badRequest(c, "multipart form expected")
	}
	doc, closeDoc, err := formFile(c, "license_document", h.maxUpload)
	if err != nil {
		return uploadErr(c, "license_document", err)
	}
	defer closeDoc()

	in := service.DriverRequestInput{
		LicenseNumber:      c.FormValue("license_number"),
		VehicleDescription: c.FormValue("vehicle_description"),
	}
	if doc != nil {
		in.FileName, in.ContentType, in.Size, in.File = doc.FileName, doc.ContentType, doc.Size, doc.Body
	}

	ctx, cancel := timeout(c)
	defer cancel()
	r, err := h.admin.SubmitRequest(ctx, identity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *AdminHandler) MyRequests(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.admin.MyRequests(ctx, identity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) PendingDrivers(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.admin.PendingDrivers(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) VerifyDriver(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.admin.VerifyDriver(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "driver verified"})
}

func (h *AdminHandler) RejectDriver(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.admin.RejectDriver(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "driver rejected"})
}

// ListRequests handles GET /api/admin/driver-requests[?status=].
func (h *AdminHandler) ListRequests(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.admin.ListRequests(ctx, c.QueryParam("status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ApproveRequest(c echo.Context) error {
	return h.review(c, h.admin.ApproveRequest)
}

func (h *AdminHandler) RejectRequest(c echo.Context) error {
	return h.review(c, h.admin.RejectRequest)
}

func (h *AdminHandler) review(c echo.Context, fn func(ctx context.Context, id uint64, notes string) (model.DriverRequest, error)) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	r, err := fn(ctx, id, req.AdminNotes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	st, err := h.admin.Stats(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
