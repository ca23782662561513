// Package account holds the minimal user accounts behind the auth surface.
// Profile fields carrying personal data are encrypted at rest.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("account: not found")
	ErrAlreadyExists      = errors.New("account: already exists")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
)

// Account represents a registered user.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Profile      map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store describes account persistence.
type Store interface {
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}
