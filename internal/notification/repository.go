package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Insert(ctx context.Context, n Notification) (*Notification, error)
	// MarkRead sets read=true on the user's own notification. Marking an
	// already-read notification is a no-op, not an error.
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error)
}
