package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/queue"
	"github.com/iliyamo/tripshare/internal/repository"
)

// Notifier appends notifications and fans them out.  Nothing it does may
// fail the operation that triggered it.
type Notifier struct {
	repo *repository.NotificationRepo
	push Pusher
	pub  EventPublisher
	log  *logger.Logger
	now  func() time.Time
}

// NewNotifier accepts nil push and pub for deployments without websocket
// clients or a broker.
func NewNotifier(repo *repository.NotificationRepo, push Pusher, pub EventPublisher, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Notifier{repo: repo, push: push, pub: pub, log: log, now: utcNow}
}

// Notify stores a notification for userID, pushes it and publishes an
// activity event.  Failures are logged.
func (n *Notifier) Notify(ctx context.Context, userID uint64, typ, message string) {
	row, err := n.repo.Create(ctx, userID, typ, message, n.now())
	if err != nil {
		n.log.WithUserID(userID).WithError(err).Warnf("notification %s not stored", typ)
		return
	}
	if n.push != nil {
		n.push.SendToUser(userID, "notification", row)
	}
	n.Publish(ctx, queue.ActivityEvent{
		Type:    queue.EventNotificationCreated,
		UserID:  userID,
		Message: typ,
	})
}

// Push forwards a frame to the user's connections when a pusher is set.
func (n *Notifier) Push(userID uint64, typ string, data any) {
	if n.push != nil {
		n.push.SendToUser(userID, typ, data)
	}
}

// Publish sends an activity event when a broker is configured.
func (n *Notifier) Publish(ctx context.Context, ev queue.ActivityEvent) {
	if n.pub == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = n.now()
	}
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.log.WithUserID(ev.UserID).WithError(err).Debugf("activity event %s dropped", ev.Type)
	}
}

// NotificationPage is one page of a user's notifications.
type NotificationPage struct {
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
	Total   int64                `json:"total"`
	Results []model.Notification `json:"results"`
}

func (n *Notifier) List(ctx context.Context, userID uint64, page, limit int) (NotificationPage, error) {
	page, limit = Page(page, limit, 20, 100)
	rows, total, err := n.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return NotificationPage{}, fmt.Errorf("list notifications: %w", err)
	}
	return NotificationPage{Page: page, Limit: limit, Total: total, Results: rows}, nil
}

func (n *Notifier) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	c, err := n.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return c, nil
}

// MarkRead marks one notification of userID read.  Other users' rows look
// absent.
func (n *Notifier) MarkRead(ctx context.Context, userID, id uint64) error {
	err := n.repo.MarkRead(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("notification not found")
	}
	if err != nil {
		return fmt.Errorf("mark notification: %w", err)
	}
	return nil
}

func (n *Notifier) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	c, err := n.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications: %w", err)
	}
	return c, nil
}
