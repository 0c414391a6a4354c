package ports

import (
	"context"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

// AccountService runs the four identity operations on behalf of one browser
// session and keeps the session store in sync with their results.
type AccountService interface {
	// Login returns the session id the signed-in session is stored under,
	// which replaces sid.
	Login(ctx context.Context, sid, email, password string) (string, *domain.Session, error)
	FetchProfile(ctx context.Context, sid string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, sid, email, password string) error
	CreateUser(ctx context.Context, sid string, in NewUserInput) error

	Session(ctx context.Context, sid string) (*domain.Session, error)
	Status(sid string, op domain.Operation) domain.OpStatus
}
