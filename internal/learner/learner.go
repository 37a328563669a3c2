// Package learner holds learner accounts: identity lookup, bulk import and
// the credential check behind the dev login.
package learner

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleStudent, nil
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r, nil
	default:
		return "", quiz.InvalidInput("role", "invalid role: "+s)
	}
}

type Learner struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Row is one line of a bulk import. Password is plaintext and only needed
// for new learners; an empty password keeps the existing hash.
type Row struct {
	ID       string `json:"id" validate:"required,max=128"`
	Username string `json:"username" validate:"required,max=128"`
	Name     string `json:"name,omitempty" validate:"max=256"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=student teacher admin STUDENT TEACHER ADMIN"`
	Password string `json:"password,omitempty"`
}

type UpsertStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

var ErrInvalidCredentials = errors.New("invalid credentials")

type Store interface {
	// Get returns a quiz NotFound error for unknown ids.
	Get(ctx context.Context, id string) (Learner, error)
	// BulkUpsert creates or updates every row in one transaction. New
	// learners get an empty progress record in the same transaction.
	BulkUpsert(ctx context.Context, rows []Row) (UpsertStats, error)
	Authenticate(ctx context.Context, username, password string) (Learner, error)
}

// bcryptCost is a var so tests can lower it.
var bcryptCost = 12

// hashPassword returns nil for an empty password.
func hashPassword(pw string) ([]byte, error) {
	if pw == "" {
		return nil, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return nil, quiz.InvalidInput("password", "password longer than 72 bytes")
	case err != nil:
		return nil, quiz.StorageFailure("hash password", err)
	}
	return h, nil
}

// prepared is a Row with its role parsed and password hashed, ready to write.
type prepared struct {
	Row
	role Role
	hash []byte
}

// prepare does the CPU-bound work of an import up front so it never runs
// while a transaction holds a connection.
func prepare(rows []Row) ([]prepared, error) {
	out := make([]prepared, 0, len(rows))
	for _, r := range rows {
		role, err := ParseRole(r.Role)
		if err != nil {
			return nil, err
		}
		h, err := hashPassword(r.Password)
		if err != nil {
			return nil, err
		}
		out = append(out, prepared{Row: r, role: role, hash: h})
	}
	return out, nil
}

func passwordRequired(username string) error {
	return quiz.InvalidInput("password", "password required for new learner: "+username)
}

// asStorageFailure leaves classified errors alone and wraps the rest.
func asStorageFailure(op string, err error) error {
	var qe *quiz.Error
	if err == nil || errors.As(err, &qe) {
		return err
	}
	return quiz.StorageFailure(op, err)
}
