package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) Contacts(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	out, err := h.chats.Contacts(ctx, identity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	n, err := h.chats.UnreadCount(ctx, identity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// Conversation handles GET /api/chat/:userId and marks the other party's
// messages read.
func (h *ChatHandler) Conversation(c echo.Context) error {
	other, ok := pathID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	msgs, err := h.chats.Conversation(ctx, identity(c), other)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) Send(c echo.Context) error {
	var in service.SendInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	msg, err := h.chats.Send(ctx, identity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
