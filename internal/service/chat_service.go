package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/repository"
)

const maxChatMessage = 2000

// ChatService gates messaging on a live reservation between the two users.
type ChatService struct {
	chats  *repository.ChatRepo
	users  *repository.UserRepo
	notify *Notifier
	now    func() time.Time
}

func NewChatService(chats *repository.ChatRepo, users *repository.UserRepo, notify *Notifier) *ChatService {
	return &ChatService{chats: chats, users: users, notify: notify, now: utcNow}
}

func (s *ChatService) requireLink(ctx context.Context, me, other uint64) error {
	if me == other {
		return badRequest("cannot chat with yourself")
	}
	ok, err := s.chats.LinkExists(ctx, me, other)
	if err != nil {
		return fmt.Errorf("check chat link: %w", err)
	}
	if !ok {
		return forbidden("no active reservation links you to this user")
	}
	return nil
}

// Contacts lists the users the caller can currently message.
func (s *ChatService) Contacts(ctx context.Context, who Identity) ([]model.ChatContact, error) {
	out, err := s.chats.Contacts(ctx, who.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

// Conversation returns the whole thread with other, oldest first, and marks
// other's messages to the caller read.
func (s *ChatService) Conversation(ctx context.Context, who Identity, other uint64) ([]model.ChatMessage, error) {
	if err := s.requireLink(ctx, who.UserID, other); err != nil {
		return nil, err
	}
	msgs, err := s.chats.Conversation(ctx, who.UserID, other)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if _, err := s.chats.MarkReadFrom(ctx, other, who.UserID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return msgs, nil
}

// SendInput is the body of a chat message.
type SendInput struct {
	ReceiverID uint64 `json:"receiver_id"`
	Message    string `json:"message"`
}

// Send stores a message and pushes it to the receiver.
func (s *ChatService) Send(ctx context.Context, who Identity, in SendInput) (model.ChatMessage, error) {
	body := strings.TrimSpace(in.Message)
	if body == "" {
		return model.ChatMessage{}, invalid("message must not be empty")
	}
	if utf8.RuneCountInString(body) > maxChatMessage {
		return model.ChatMessage{}, invalid("message must be at most %d characters", maxChatMessage)
	}
	if in.ReceiverID == 0 {
		return model.ChatMessage{}, invalid("receiver_id is required")
	}
	if err := s.requireLink(ctx, who.UserID, in.ReceiverID); err != nil {
		return model.ChatMessage{}, err
	}
	msg, err := s.chats.Create(ctx, who.UserID, in.ReceiverID, body, s.now())
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}
	s.notify.Push(in.ReceiverID, "chat_message", msg)
	return msg, nil
}

func (s *ChatService) UnreadCount(ctx context.Context, who Identity) (int64, error) {
	n, err := s.chats.UnreadCount(ctx, who.UserID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}
