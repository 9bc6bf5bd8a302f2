package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const userColumns = `uid, email, role, name, specialization, password_hash, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var rawRole string

	err := row.Scan(
		&u.UID,
		&u.Email,
		&rawRole,
		&u.Name,
		&u.Specialization,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Roles are validated on the way out of the store, not trusted.
	role, err := ParseRole(rawRole)
	if err != nil {
		return nil, err
	}
	u.Role = role

	return &u, nil
}

func (r *PgRepository) Create(ctx context.Context, u User) (*User, error) {
	uid := u.UID
	if uid == uuid.Nil {
		uid = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (uid, email, role, name, specialization, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+userColumns+`
	`, uid, u.Email, string(u.Role), u.Name, u.Specialization, u.PasswordHash)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetByUID(ctx context.Context, uid uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE uid = $1
	`, uid)
	return scanUser(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'doctor'
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
