package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
	"github.com/iliyamo/tripshare/internal/repository"
	"github.com/iliyamo/tripshare/internal/storage"
)

// AdminService covers driver verification and the dashboard counters.
type AdminService struct {
	db           *sql.DB
	users        *repository.UserRepo
	requests     *repository.DriverRequestRepo
	trips        *repository.TripRepo
	reservations *repository.ReservationRepo
	files        storage.Storage
	notify       *Notifier
	now          func() time.Time
}

func NewAdminService(db *sql.DB, users *repository.UserRepo, requests *repository.DriverRequestRepo,
	trips *repository.TripRepo, reservations *repository.ReservationRepo, files storage.Storage, notify *Notifier) *AdminService {
	return &AdminService{
		db:           db,
		users:        users,
		requests:     requests,
		trips:        trips,
		reservations: reservations,
		files:        files,
		notify:       notify,
		now:          utcNow,
	}
}

// PendingDrivers lists drivers that registered directly and await the
// verification flag.
func (s *AdminService) PendingDrivers(ctx context.Context) ([]model.User, error) {
	out, err := s.users.ListUnverifiedDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return out, nil
}

// unverifiedDriver distinguishes "no such driver" from "already verified".
func (s *AdminService) unverifiedDriver(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.Role != model.RoleDriver) {
		return u, notFound("driver not found")
	}
	if err != nil {
		return u, fmt.Errorf("load driver: %w", err)
	}
	if u.IsVerified {
		return u, conflict("driver already verified")
	}
	return u, nil
}

func (s *AdminService) VerifyDriver(ctx context.Context, id uint64) error {
	if _, err := s.unverifiedDriver(ctx, id); err != nil {
		return err
	}
	ok, err := s.users.VerifyDriver(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("verify driver: %w", err)
	}
	if !ok {
		return conflict("driver already verified")
	}
	s.notify.Notify(ctx, id, model.NotifyDriverApproved, "Your driver account has been verified. You can now publish trips.")
	return nil
}

// RejectDriver deletes a pending driver account.
func (s *AdminService) RejectDriver(ctx context.Context, id uint64) error {
	if _, err := s.unverifiedDriver(ctx, id); err != nil {
		return err
	}
	ok, err := s.users.DeleteUnverifiedDriver(ctx, id)
	if err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	if !ok {
		return conflict("driver already verified")
	}
	return nil
}

// DriverRequestInput is a passenger's application with its license file.
type DriverRequestInput struct {
	LicenseNumber      string
	VehicleDescription string
	FileName           string
	ContentType        string
	Size               int64
	File               io.Reader
}

// SubmitRequest files a driver application for a passenger.
func (s *AdminService) SubmitRequest(ctx context.Context, who Identity, in DriverRequestInput) (model.DriverRequest, error) {
	if who.Role != model.RolePassenger {
		return model.DriverRequest{}, forbidden("only passengers can apply to become drivers")
	}
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	in.VehicleDescription = strings.TrimSpace(in.VehicleDescription)
	if in.LicenseNumber == "" {
		return model.DriverRequest{}, invalid("license_number is required")
	}
	if in.File == nil {
		return model.DriverRequest{}, invalid("license_document is required")
	}
	pending, err := s.requests.HasPending(ctx, who.UserID)
	if err != nil {
		return model.DriverRequest{}, fmt.Errorf("check requests: %w", err)
	}
	if pending {
		return model.DriverRequest{}, conflict("you already have a pending driver request")
	}

	up, err := s.files.Upload(ctx, &storage.UploadRequest{
		Key:         storage.NewKey("licenses", in.FileName),
		Reader:      in.File,
		ContentType: in.ContentType,
		Size:        in.Size,
	})
	if err != nil {
		return model.DriverRequest{}, fmt.Errorf("store license: %w", err)
	}

	id, err := s.requests.Create(ctx, model.DriverRequest{
		UserID:             who.UserID,
		LicenseNumber:      in.LicenseNumber,
		LicenseDocument:    up.URL,
		VehicleDescription: in.VehicleDescription,
		CreatedAt:          s.now(),
	})
	if err != nil {
		_ = s.files.Delete(ctx, up.Key)
		return model.DriverRequest{}, fmt.Errorf("insert request: %w", err)
	}
	return s.requests.GetByID(ctx, id)
}

func (s *AdminService) MyRequests(ctx context.Context, who Identity) ([]model.DriverRequest, error) {
	out, err := s.requests.ListByUser(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

func (s *AdminService) ListRequests(ctx context.Context, status string) ([]model.DriverRequest, error) {
	switch status {
	case "", model.RequestPending, model.RequestApproved, model.RequestRejected:
	default:
		return nil, invalid("status must be pending, approved or rejected")
	}
	out, err := s.requests.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// ApproveRequest promotes the applicant to a verified driver.  The status
// update is conditional, so a second approval is a conflict.
func (s *AdminService) ApproveRequest(ctx context.Context, id uint64, notes string) (model.DriverRequest, error) {
	now := s.now()
	var req model.DriverRequest
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		req, err = s.requests.GetByIDTx(ctx, tx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("driver request not found")
		}
		if err != nil {
			return fmt.Errorf("load request: %w", err)
		}
		ok, err := s.requests.ApproveTx(ctx, tx, id, strings.TrimSpace(notes), now)
		if err != nil {
			return fmt.Errorf("approve request: %w", err)
		}
		if !ok {
			return conflict("request already processed")
		}
		if err := s.users.PromoteToDriverTx(ctx, tx, req.UserID, req.LicenseDocument, now); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.DriverRequest{}, err
	}
	s.notify.Notify(ctx, req.UserID, model.NotifyDriverApproved,
		"Your driver request has been approved. You can now publish trips.")
	return s.requests.GetByID(ctx, id)
}

func (s *AdminService) RejectRequest(ctx context.Context, id uint64, notes string) (model.DriverRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return req, notFound("driver request not found")
	}
	if err != nil {
		return req, fmt.Errorf("load request: %w", err)
	}
	notes = strings.TrimSpace(notes)
	ok, err := s.requests.Reject(ctx, id, notes, s.now())
	if err != nil {
		return req, fmt.Errorf("reject request: %w", err)
	}
	if !ok {
		return req, conflict("request already processed")
	}
	msg := "Your driver request has been rejected."
	if notes != "" {
		msg += " Reason: " + notes
	}
	s.notify.Notify(ctx, req.UserID, model.NotifyDriverRejected, msg)
	return s.requests.GetByID(ctx, id)
}

// Stats are the admin dashboard counters.
type Stats struct {
	Users              map[string]int64 `json:"users"`
	Trips              int64            `json:"trips"`
	OpenTrips          int64            `json:"open_trips"`
	ActiveReservations int64            `json:"active_reservations"`
	PendingRequests    int              `json:"pending_driver_requests"`
}

func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.Users, err = s.users.CountByRole(ctx); err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	if st.Trips, err = s.trips.Count(ctx, ""); err != nil {
		return st, fmt.Errorf("count trips: %w", err)
	}
	if st.OpenTrips, err = s.trips.Count(ctx, model.TripOpen); err != nil {
		return st, fmt.Errorf("count trips: %w", err)
	}
	if st.ActiveReservations, err = s.reservations.CountActive(ctx); err != nil {
		return st, fmt.Errorf("count reservations: %w", err)
	}
	pending, err := s.requests.List(ctx, model.RequestPending)
	if err != nil {
		return st, fmt.Errorf("count requests: %w", err)
	}
	st.PendingRequests = len(pending)
	return st, nil
}
