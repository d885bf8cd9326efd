package service

import (
	"context"
	"testing"

	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/queue"
)

func TestNotifierStoresPushesAndPublishes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, model.RolePassenger, false)

	e.notifier.Notify(ctx, u.UserID, model.NotifyTripUpdate, "first")
	e.notifier.Notify(ctx, u.UserID, model.NotifyTripDeletion, "second")

	if e.pusher.count(u.UserID, "notification") != 2 {
		t.Fatalf("pushes %+v", e.pusher.frames)
	}
	for _, typ := range e.pub.types() {
		if typ != queue.EventNotificationCreated {
			t.Fatalf("unexpected event %s", typ)
		}
	}

	page, err := e.notifier.List(ctx, u.UserID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Limit != 20 || page.Total != 2 || page.Results[0].Message != "second" {
		t.Fatalf("page %+v", page)
	}
	page, _ = e.notifier.List(ctx, u.UserID, 2, 1)
	if len(page.Results) != 1 || page.Results[0].Message != "first" {
		t.Fatalf("second page %+v", page)
	}
	if page, _ = e.notifier.List(ctx, u.UserID, 1, 1000); page.Limit != 100 {
		t.Fatalf("limit not capped: %d", page.Limit)
	}
}

func TestNotifierWithoutPushOrBroker(t *testing.T) {
	e := newEnv(t)
	n := NewNotifier(e.notes, nil, nil, nil)
	u := e.user(t, model.RolePassenger, false)
	n.Notify(context.Background(), u.UserID, model.NotifyConfirmation, "ok")
	if c, _ := n.UnreadCount(context.Background(), u.UserID); c != 1 {
		t.Fatalf("unread=%d", c)
	}
}

func TestMarkRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, model.RolePassenger, false)
	b := e.user(t, model.RolePassenger, false)
	for i := 0; i < 3; i++ {
		e.notifier.Notify(ctx, a.UserID, model.NotifyConfirmation, "hello")
	}
	page, _ := e.notifier.List(ctx, a.UserID, 1, 10)
	id := page.Results[0].ID

	wantKind(t, e.notifier.MarkRead(ctx, b.UserID, id), KindNotFound)
	if err := e.notifier.MarkRead(ctx, a.UserID, id); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if c, _ := e.notifier.UnreadCount(ctx, a.UserID); c != 2 {
		t.Fatalf("unread=%d, want 2", c)
	}
	n, err := e.notifier.MarkAllRead(ctx, a.UserID)
	if err != nil || n != 2 {
		t.Fatalf("mark all: %d %v", n, err)
	}
	if c, _ := e.notifier.UnreadCount(ctx, a.UserID); c != 0 {
		t.Fatalf("unread=%d after mark all", c)
	}
}
