package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the status state machine allows the edge.
// waiting -> in-progress and waiting -> cancelled, in-progress -> completed;
// waiting -> waiting covers reschedules.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusWaiting:
		return to == StatusInProgress || to == StatusCancelled || to == StatusWaiting
	case StatusInProgress:
		return to == StatusCompleted
	}
	return false
}

// Appointment is one patient's claim on a doctor's queue for one calendar day.
// QueueNumber is unique and strictly increasing within the (DoctorID, Date)
// partition.
type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	PatientEmail string
	DoctorID     uuid.UUID
	DoctorName   string // denormalized display copy, not authoritative
	Date         string // YYYY-MM-DD
	QueueNumber  int
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CancelledAt  *time.Time
}

// Booking carries the fields required to join a queue.
type Booking struct {
	PatientID    uuid.UUID
	PatientEmail string
	DoctorID     uuid.UUID
	DoctorName   string
	Date         string // YYYY-MM-DD
}

var ErrValidation = errors.New("missing required booking fields")

const dateLayout = "2006-01-02"

func (b Booking) Validate() error {
	if b.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id", ErrValidation)
	}
	if b.PatientEmail == "" {
		return fmt.Errorf("%w: patient email", ErrValidation)
	}
	if b.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor id", ErrValidation)
	}
	if b.DoctorName == "" {
		return fmt.Errorf("%w: doctor name", ErrValidation)
	}
	return ValidateDate(b.Date)
}

func ValidateDate(date string) error {
	if date == "" {
		return fmt.Errorf("%w: date", ErrValidation)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return nil
}
