package repository

import (
	"context"
	"errors"

	"github.com/walletapi/backend/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("email or cpf_cnpj already registered")
	// ErrStaleAccount is returned when a balance update matched no row at the expected version.
	ErrStaleAccount = errors.New("optimistic lock failed")
)

// UserRepository stores users and their addresses.
type UserRepository interface {
	// Register creates the address, the user and a zero-balance account in one transaction.
	// user.Address must be set; IDs and timestamps are filled in.
	Register(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}
