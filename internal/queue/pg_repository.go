package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, patient_email, doctor_id, doctor_name, visit_date, queue_number, status, created_at, updated_at, cancelled_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var cancelledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientEmail,
		&a.DoctorID,
		&a.DoctorName,
		&a.Date,
		&a.QueueNumber,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CancelledAt = cancelledAt
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) CreateWaiting(ctx context.Context, b Booking) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Per-partition sequence: one counter row per (doctor, date), bumped
	// atomically so concurrent bookings never share a queue number.
	var queueNumber int
	err = tx.QueryRow(ctx, `
		INSERT INTO queue_counters (doctor_id, visit_date, next_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (doctor_id, visit_date)
		DO UPDATE SET next_number = queue_counters.next_number + 1
		RETURNING next_number
	`, b.DoctorID, b.Date).Scan(&queueNumber)
	if err != nil {
		return nil, fmt.Errorf("allocate queue number: %w", err)
	}

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, patient_email, doctor_id, doctor_name, visit_date, queue_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'waiting', now(), now())
		RETURNING `+appointmentColumns+`
	`, id, b.PatientID, b.PatientEmail, b.DoctorID, b.DoctorName, b.Date, queueNumber)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CancelWaiting(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancelled_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'waiting'
		RETURNING `+appointmentColumns+`
	`, id)

	return scanAppointment(row)
}

func (r *PgRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET visit_date = $2,
		    status = 'waiting',
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, newDate)

	return scanAppointment(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) Advance(ctx context.Context, doctorID uuid.UUID, date string) (*Appointment, []Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin advance tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// At most one in-progress appointment is expected per partition, but the
	// update tolerates more and retires them all.
	rows, err := tx.Query(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    updated_at = now()
		WHERE doctor_id = $1
		  AND visit_date = $2
		  AND status = 'in-progress'
		RETURNING `+appointmentColumns+`
	`, doctorID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("complete in-progress: %w", err)
	}

	completed, err := collectAppointments(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("complete in-progress: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'in-progress',
		    updated_at = now()
		WHERE id = (
			SELECT id
			FROM appointments
			WHERE doctor_id = $1
			  AND visit_date = $2
			  AND status = 'waiting'
			ORDER BY queue_number ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+appointmentColumns+`
	`, doctorID, date)

	promoted, err := scanAppointment(row)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil, fmt.Errorf("promote next waiting: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit advance tx: %w", err)
	}

	return promoted, completed, nil
}

func (r *PgRepository) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2
		ORDER BY queue_number ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListWaitingByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND visit_date = $2
		  AND status = 'waiting'
		ORDER BY queue_number ASC
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatientDate(ctx context.Context, patientID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND visit_date = $2
		ORDER BY queue_number ASC
	`, patientID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY visit_date ASC, queue_number ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListWaitingBefore(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'waiting'
		  AND visit_date < $1
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}
