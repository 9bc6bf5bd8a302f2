package notification

import (
	"context"
	"errors"
	"fmt"

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

const notificationColumns = `id, user_id, appointment_id, message, read, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var appointmentID *uuid.UUID

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&appointmentID,
		&n.Message,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	n.AppointmentID = appointmentID
	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n Notification) (*Notification, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, appointment_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, false, now())
		RETURNING `+notificationColumns+`
	`, id, n.UserID, n.AppointmentID, n.Message)

	created, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

func (r *PgRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1
		  AND user_id = $2
		RETURNING `+notificationColumns+`
	`, id, userID)

	return scanNotification(row)
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
