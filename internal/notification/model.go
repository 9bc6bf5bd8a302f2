package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one inbox message for a user, optionally correlated to an
// appointment. Never deleted in normal flow; the owning user only flips Read.
type Notification struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AppointmentID *uuid.UUID
	Message       string
	Read          bool
	CreatedAt     time.Time
}
