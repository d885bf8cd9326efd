package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/service"
)

type NotificationHandler struct {
	notify *service.Notifier
}

func NewNotificationHandler(notify *service.Notifier) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

// List handles GET /api/notifications?page=&limit=, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	page, limit, bad := pageParams(c)
	if bad != "" {
		return unprocessable(c, bad+" must be an integer")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.notify.List(ctx, identity(c).UserID, page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	n, err := h.notify.UnreadCount(ctx, identity(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.notify.MarkRead(ctx, identity(c).UserID, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	n, err := h.notify.MarkAllRead(ctx, identity(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
