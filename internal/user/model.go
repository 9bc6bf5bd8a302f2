package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a closed enumeration validated at the profile-read boundary.
// Dispatch sites switch on it exhaustively instead of comparing loose strings.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RolePatient:
		return RolePatient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// User is a profile record. Name and Specialization are only set for doctors.
type User struct {
	UID            uuid.UUID
	Email          string
	Role           Role
	Name           string
	Specialization string
	PasswordHash   string
	CreatedAt      time.Time
}
