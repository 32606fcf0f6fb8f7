package identity

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// User is the authenticated caller. ID is the provider's stable subject.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}
