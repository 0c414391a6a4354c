package ports

import (
	"context"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

// NewUserInput is the payload of a CreateUser call.
type NewUserInput struct {
	Email    string
	Password string
	Role     domain.Role
}

// IdentityClient talks to the remote identity service. Every method is a
// single attempt; failures wrap the operation's domain sentinel.
type IdentityClient interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	FetchProfile(ctx context.Context, token, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, token, userID, email, password string) error
	CreateUser(ctx context.Context, token string, in NewUserInput) error
}
