package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/hospital-queue-service/internal/redis"
)

const (
	msgYourTurn  = "Your turn! Please proceed to the doctor."
	msgCancelled = "Your appointment with %s on %s has been cancelled."
)

var (
	// ErrQueueBusy means another caller holds the partition lock.
	ErrQueueBusy = errors.New("queue is currently being advanced, please retry")
)

// Notifier creates inbox records for a user. Implemented by the notification
// service.
type Notifier interface {
	Emit(ctx context.Context, userID uuid.UUID, message string, appointmentID *uuid.UUID) error
}

// Publisher announces appointment changes to live subscribers. Implementations
// must not block on slow consumers.
type Publisher interface {
	AppointmentChanged(ctx context.Context, a *Appointment)
}

type Service struct {
	repo     Repository
	notifier Notifier
	locker   redisclient.Locker
	pub      Publisher
	log      zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, locker redisclient.Locker, pub Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		locker:   locker,
		pub:      pub,
		log:      log.With().Str("component", "queue").Logger(),
	}
}

// Book validates the booking, allocates the next queue number in the
// (doctor, date) partition and creates the appointment as waiting.
func (s *Service) Book(ctx context.Context, b Booking) (*Appointment, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	appt, err := s.repo.CreateWaiting(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.Date).
		Int("queue_number", appt.QueueNumber).
		Msg("appointment booked")

	s.pub.AppointmentChanged(ctx, appt)

	return appt, nil
}

// Cancel moves a waiting appointment to cancelled. Any other status is
// rejected.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status != StatusWaiting {
		return nil, fmt.Errorf("%w: cannot cancel appointment with status: %s", ErrInvalidStatusTransition, appt.Status)
	}

	cancelled, err := s.repo.CancelWaiting(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race: someone else moved it off waiting between the
			// read and the conditional update.
			return nil, s.transitionError(ctx, id)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.notify(ctx, cancelled.PatientID, fmt.Sprintf(msgCancelled, cancelled.DoctorName, cancelled.Date), cancelled.ID)
	s.pub.AppointmentChanged(ctx, cancelled)

	return cancelled, nil
}

// Reschedule moves the appointment to a new date and forces it back to
// waiting. The queue number is deliberately not reallocated against the
// destination partition; see the project design notes.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate string) (*Appointment, error) {
	if err := ValidateDate(newDate); err != nil {
		return nil, err
	}

	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.Reschedule(ctx, id, newDate)
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}

	// Both the source and destination partitions changed.
	s.pub.AppointmentChanged(ctx, prev)
	s.pub.AppointmentChanged(ctx, appt)

	return appt, nil
}

// Delete is the administrative escape hatch: hard delete, no state check, no
// notification.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.pub.AppointmentChanged(ctx, appt)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Advance is the doctor's "call next patient" action: under the partition
// lock, the current in-progress appointment is completed and the
// lowest-numbered waiting one is promoted. An empty queue is a no-op.
func (s *Service) Advance(ctx context.Context, doctorID uuid.UUID, date string) (*Appointment, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor id", ErrValidation)
	}
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	var (
		promoted  *Appointment
		completed []Appointment
	)

	err := s.locker.WithQueueLock(ctx, doctorID, date, func(lockCtx context.Context) error {
		next, done, err := s.repo.Advance(lockCtx, doctorID, date)
		if err != nil {
			return err
		}

		promoted = next
		completed = done
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrQueueBusy
		}
		return nil, fmt.Errorf("advance queue: %w", err)
	}

	// Completions change the partition view and the finished patient's own
	// views, even when no one is left to promote.
	for i := range completed {
		s.log.Info().
			Str("appointment_id", completed[i].ID.String()).
			Int("queue_number", completed[i].QueueNumber).
			Msg("appointment completed")
		s.pub.AppointmentChanged(ctx, &completed[i])
	}

	if promoted == nil {
		return nil, nil
	}

	s.log.Info().
		Str("appointment_id", promoted.ID.String()).
		Int("queue_number", promoted.QueueNumber).
		Msg("patient called")

	s.notify(ctx, promoted.PatientID, msgYourTurn, promoted.ID)
	s.pub.AppointmentChanged(ctx, promoted)

	return promoted, nil
}

// SweepStale cancels waiting appointments whose date has passed. Called by
// the queue worker.
func (s *Service) SweepStale(ctx context.Context, today string) (int, error) {
	if err := ValidateDate(today); err != nil {
		return 0, err
	}

	stale, err := s.repo.ListWaitingBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list stale waiting: %w", err)
	}

	swept := 0
	for _, a := range stale {
		cancelled, err := s.repo.CancelWaiting(ctx, a.ID)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("sweep cancel failed")
			continue
		}

		s.notify(ctx, cancelled.PatientID, fmt.Sprintf(msgCancelled, cancelled.DoctorName, cancelled.Date), cancelled.ID)
		s.pub.AppointmentChanged(ctx, cancelled)
		swept++
	}

	return swept, nil
}

// Read-side passthroughs used by the API layer for one-shot queries.

func (s *Service) DoctorRoster(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	return s.repo.ListByDoctorDate(ctx, doctorID, date)
}

func (s *Service) WaitingQueue(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	return s.repo.ListWaitingByDoctorDate(ctx, doctorID, date)
}

func (s *Service) PatientDay(ctx context.Context, patientID uuid.UUID, date string) ([]Appointment, error) {
	return s.repo.ListByPatientDate(ctx, patientID, date)
}

func (s *Service) PatientHistory(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// transitionError re-reads the record to report the status that blocked a
// conditional update.
func (s *Service) transitionError(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot cancel appointment with status: %s", ErrInvalidStatusTransition, current.Status)
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, message string, appointmentID uuid.UUID) {
	apptID := appointmentID
	if err := s.notifier.Emit(ctx, userID, message, &apptID); err != nil {
		s.log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to emit notification")
	}
}
