package models

import "time"

// RequestStatus is the shift-change request lifecycle state.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// Request is a shift-change petition over an existing allocation.
// PENDING -> APPROVED | REJECTED are admin transitions and terminal;
// PENDING -> CANCELLED is owner-only. Approval does not reallocate the
// replacement; that is a separate editor call.
type Request struct {
	ID          int64         `db:"id" json:"id"`
	Username    string        `db:"username" json:"username"`
	ShiftID     int64         `db:"shift_id" json:"shift_id"`
	Reason      string        `db:"reason" json:"reason"`
	Replacement *string       `db:"replacement" json:"replacement,omitempty"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
}
