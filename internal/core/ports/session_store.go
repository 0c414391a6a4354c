package ports

import (
	"context"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

// SessionStore persists one Session per browser session id.
//
// Put is a compare-and-swap: session.Version must equal the stored version
// (0 when nothing is stored) or domain.ErrStaleSession is returned. On success
// the stored version is bumped and written back into session.Version.
type SessionStore interface {
	Get(ctx context.Context, sid string) (*domain.Session, error)
	Put(ctx context.Context, sid string, session *domain.Session) error
	Delete(ctx context.Context, sid string) error
	Ping(ctx context.Context) error
}
