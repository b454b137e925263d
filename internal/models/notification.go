package models

import "time"

// NotificationKind is the closed catalogue of event-sink messages.
type NotificationKind string

const (
	NotifyApproval      NotificationKind = "approval"
	NotifyRejection     NotificationKind = "rejection"
	NotifyClockIn       NotificationKind = "clock_in"
	NotifyClockOut      NotificationKind = "clock_out"
	NotifySchedule      NotificationKind = "schedule"
	NotifyReminder      NotificationKind = "reminder"
	NotifyRequest       NotificationKind = "request"
	NotifyMissed        NotificationKind = "missed"
	NotifyUpdate        NotificationKind = "update"
	NotifyPasswordReset NotificationKind = "password_reset"
)

// Valid reports membership in the closed kind set.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotifyApproval, NotifyRejection, NotifyClockIn, NotifyClockOut,
		NotifySchedule, NotifyReminder, NotifyRequest, NotifyMissed,
		NotifyUpdate, NotifyPasswordReset:
		return true
	}
	return false
}

// Notification is an append-only event consumed by the delivery layer.
// Delivery is best-effort and never part of a mutation's consistency.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	Recipient string           `db:"recipient" json:"recipient"`
	Message   string           `db:"message" json:"message"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
