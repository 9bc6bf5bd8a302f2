package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Repository contains all DB interactions needed by the service.
// Multi-step mutations (booking with its queue number allocation, queue
// advancement) run inside a single transaction on the repository side.
type Repository interface {
	// CreateWaiting allocates the next queue number for the booking's
	// (doctor, date) partition and inserts the appointment as waiting,
	// atomically.
	CreateWaiting(ctx context.Context, b Booking) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CancelWaiting cancels the appointment only if it is still waiting,
	// recording cancelled_at.
	CancelWaiting(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Reschedule sets a new date and forces the status back to waiting.
	// The queue number is left untouched.
	Reschedule(ctx context.Context, id uuid.UUID, newDate string) (*Appointment, error)

	// Delete removes the appointment unconditionally.
	Delete(ctx context.Context, id uuid.UUID) error

	// Advance completes every in-progress appointment in the partition and
	// promotes the lowest-numbered waiting one, in a single transaction.
	// promoted is nil when the queue is empty.
	Advance(ctx context.Context, doctorID uuid.UUID, date string) (promoted *Appointment, completed []Appointment, err error)

	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error)
	ListWaitingByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error)
	ListByPatientDate(ctx context.Context, patientID uuid.UUID, date string) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)

	// ListWaitingBefore returns waiting appointments whose date is strictly
	// before the given day. Used by the queue worker.
	ListWaitingBefore(ctx context.Context, date string) ([]Appointment, error)
}
