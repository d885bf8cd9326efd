package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

func license(number string) DriverRequestInput {
	return DriverRequestInput{
		LicenseNumber:      number,
		VehicleDescription: "Blue Peugeot 308",
		FileName:           "license.pdf",
		ContentType:        "application/pdf",
		Size:               9,
		File:               strings.NewReader("%PDF-1.4\n"),
	}
}

func TestDriverRequestApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pass := e.user(t, model.RolePassenger, false)

	_, err := e.admin.SubmitRequest(ctx, pass, license(" "))
	wantKind(t, err, KindInvalid)

	req, err := e.admin.SubmitRequest(ctx, pass, license("B-1234"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != model.RequestPending || !strings.HasPrefix(req.LicenseDocument, "/uploads/licenses/") {
		t.Fatalf("request %+v", req)
	}
	_, err = e.admin.SubmitRequest(ctx, pass, license("B-1234"))
	wantKind(t, err, KindConflict)

	pending, err := e.admin.ListRequests(ctx, model.RequestPending)
	if err != nil || len(pending) != 1 || pending[0].UserEmail == "" {
		t.Fatalf("pending: %v %v", pending, err)
	}
	_, err = e.admin.ListRequests(ctx, "maybe")
	wantKind(t, err, KindInvalid)

	got, err := e.admin.ApproveRequest(ctx, req.ID, " looks good ")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != model.RequestApproved || got.AdminNotes != "looks good" || got.ReviewedAt == nil {
		t.Fatalf("approved %+v", got)
	}
	u, err := e.users.GetByID(ctx, pass.UserID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Role != model.RoleDriver || !u.IsVerified || u.LicenseDocument != req.LicenseDocument {
		t.Fatalf("user not promoted: %+v", u)
	}
	if types := e.notificationTypes(t, pass.UserID); len(types) != 1 || types[0] != model.NotifyDriverApproved {
		t.Fatalf("notifications %v", types)
	}

	_, err = e.admin.ApproveRequest(ctx, req.ID, "")
	wantKind(t, err, KindConflict)
	_, err = e.admin.RejectRequest(ctx, req.ID, "")
	wantKind(t, err, KindConflict)
	_, err = e.admin.ApproveRequest(ctx, 999, "")
	wantKind(t, err, KindNotFound)

	// The promoted user can publish right away.
	promoted := Identity{UserID: pass.UserID, Role: model.RoleDriver}
	if _, err := e.trip.Create(ctx, promoted, tripInput("2026-06-03 08:00")); err != nil {
		t.Fatalf("promoted driver cannot publish: %v", err)
	}
}

func TestDriverRequestRejection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pass := e.user(t, model.RolePassenger, false)

	_, err := e.admin.SubmitRequest(ctx, e.user(t, model.RoleDriver, false), license("X"))
	wantKind(t, err, KindForbidden)

	req, err := e.admin.SubmitRequest(ctx, pass, license("B-1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := e.admin.RejectRequest(ctx, req.ID, "blurry scan")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != model.RequestRejected || got.AdminNotes != "blurry scan" {
		t.Fatalf("rejected %+v", got)
	}
	u, _ := e.users.GetByID(ctx, pass.UserID)
	if u.Role != model.RolePassenger {
		t.Fatalf("rejection changed role to %s", u.Role)
	}
	if types := e.notificationTypes(t, pass.UserID); len(types) != 1 || types[0] != model.NotifyDriverRejected {
		t.Fatalf("notifications %v", types)
	}

	// A rejected applicant may apply again.
	if _, err := e.admin.SubmitRequest(ctx, pass, license("B-2")); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	mine, err := e.admin.MyRequests(ctx, pass)
	if err != nil || len(mine) != 2 {
		t.Fatalf("my requests: %v %v", mine, err)
	}
}

func TestVerifyAndRejectDirectDrivers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d1 := e.user(t, model.RoleDriver, false)
	d2 := e.user(t, model.RoleDriver, false)
	pass := e.user(t, model.RolePassenger, false)

	pending, err := e.admin.PendingDrivers(ctx)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending drivers: %v %v", pending, err)
	}

	if err := e.admin.VerifyDriver(ctx, d1.UserID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	wantKind(t, e.admin.VerifyDriver(ctx, d1.UserID), KindConflict)
	wantKind(t, e.admin.VerifyDriver(ctx, pass.UserID), KindNotFound)
	wantKind(t, e.admin.VerifyDriver(ctx, 999), KindNotFound)
	if types := e.notificationTypes(t, d1.UserID); len(types) != 1 || types[0] != model.NotifyDriverApproved {
		t.Fatalf("notifications %v", types)
	}

	if err := e.admin.RejectDriver(ctx, d2.UserID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err = e.users.GetByID(ctx, d2.UserID)
	if err == nil {
		t.Fatal("rejected driver still exists")
	}
	wantKind(t, e.admin.RejectDriver(ctx, d1.UserID), KindConflict)

	if pending, _ := e.admin.PendingDrivers(ctx); len(pending) != 0 {
		t.Fatalf("pending after review: %v", pending)
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	driver := e.user(t, model.RoleDriver, true)
	pass := e.user(t, model.RolePassenger, false)
	e.user(t, model.RoleAdmin, true)
	tr := e.tripAt(t, driver, testNow.Add(24*time.Hour), 2)
	if _, err := e.res.Create(ctx, pass, tr.ID); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := e.admin.SubmitRequest(ctx, e.user(t, model.RolePassenger, false), license("Z")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	st, err := e.admin.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Users[model.RolePassenger] != 2 || st.Users[model.RoleDriver] != 1 || st.Users[model.RoleAdmin] != 1 {
		t.Fatalf("users %v", st.Users)
	}
	if st.Trips != 1 || st.OpenTrips != 1 || st.ActiveReservations != 1 || st.PendingRequests != 1 {
		t.Fatalf("stats %+v", st)
	}
}
