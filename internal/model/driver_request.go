package model

import "time"

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// DriverRequest is a passenger's application to become a driver.  Approval
// promotes the user; rejection leaves the user untouched.
type DriverRequest struct {
	ID                 uint64     `json:"id"`
	UserID             uint64     `json:"user_id"`
	UserName           string     `json:"user_name,omitempty"`
	UserEmail          string     `json:"user_email,omitempty"`
	LicenseNumber      string     `json:"license_number"`
	LicenseDocument    string     `json:"license_document"`
	VehicleDescription string     `json:"vehicle_description"`
	Status             string     `json:"status"`
	AdminNotes         string     `json:"admin_notes"`
	CreatedAt          time.Time  `json:"created_at"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
}
