package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/metrics"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

// maxWriteAttempts bounds the re-read loop when a session write loses a
// compare-and-swap race.
const maxWriteAttempts = 3

type accountService struct {
	identity ports.IdentityClient
	store    ports.SessionStore
	tracker  *Tracker
	log      zerolog.Logger
	newID    func() string
}

// NewAccountService returns an AccountService implementation.
func NewAccountService(
	identity ports.IdentityClient,
	store ports.SessionStore,
	tracker *Tracker,
	log zerolog.Logger,
) ports.AccountService {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &accountService{
		identity: identity,
		store:    store,
		tracker:  tracker,
		log:      log.With().Str("component", "account").Logger(),
		newID:    uuid.NewString,
	}
}

// Login authenticates against the identity service and, on success, stores
// the token and user together under a freshly issued session id, which it
// returns. The entry under the previous id is deleted so an id handed out
// before sign-in never becomes authenticated. A failed login leaves the
// store untouched.
func (s *accountService) Login(ctx context.Context, sid, email, password string) (string, *domain.Session, error) {
	if err := s.begin(sid, domain.OpLogin); err != nil {
		return "", nil, err
	}

	next, session, err := s.login(context.WithoutCancel(ctx), sid, email, password)
	s.tracker.Settle(sid, domain.OpLogin, err, "")
	return next, session, err
}

func (s *accountService) login(ctx context.Context, sid, email, password string) (string, *domain.Session, error) {
	session, err := s.identity.Login(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	next := s.newID()
	stored := *session
	stored.Version = 0
	if err := s.store.Put(ctx, next, &stored); err != nil {
		return "", nil, fmt.Errorf("login: store session: %w", err)
	}
	if err := s.store.Delete(ctx, sid); err != nil {
		s.log.Warn().Err(err).Msg("login: previous session not deleted")
	}

	s.log.Info().Str("user_id", stored.User.ID).Str("role", string(stored.User.Role)).Msg("user logged in")
	return next, &stored, nil
}

// FetchProfile loads the full profile of the signed-in user. It never
// writes to the session store.
func (s *accountService) FetchProfile(ctx context.Context, sid string) (*domain.Profile, error) {
	if err := s.begin(sid, domain.OpFetchProfile); err != nil {
		return nil, err
	}

	profile, err := s.fetchProfile(context.WithoutCancel(ctx), sid)
	s.tracker.Settle(sid, domain.OpFetchProfile, err, "")
	return profile, err
}

func (s *accountService) fetchProfile(ctx context.Context, sid string) (*domain.Profile, error) {
	session, err := s.Session(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.identity.FetchProfile(ctx, session.AccessToken, session.User.ID)
}

// UpdateProfile sends the new email and password. When the identity service
// accepts a changed email, only the cached user's email is rewritten.
func (s *accountService) UpdateProfile(ctx context.Context, sid, email, password string) error {
	if err := s.begin(sid, domain.OpUpdateProfile); err != nil {
		return err
	}

	err := s.updateProfile(context.WithoutCancel(ctx), sid, email, password)
	s.tracker.Settle(sid, domain.OpUpdateProfile, err, domain.MsgProfileUpdated)
	return err
}

func (s *accountService) updateProfile(ctx context.Context, sid, email, password string) error {
	session, err := s.Session(ctx, sid)
	if err != nil {
		return err
	}

	if err := s.identity.UpdateProfile(ctx, session.AccessToken, session.User.ID, email, password); err != nil {
		return err
	}

	if email == session.User.Email {
		return nil
	}

	err = s.write(ctx, sid, func(current *domain.Session) (*domain.Session, error) {
		if !current.Present() {
			return nil, domain.ErrNoSession
		}
		next := current.WithEmail(email)
		return &next, nil
	})
	if err != nil {
		// The remote update already happened; the page still reports success
		// and the cached email catches up on the next login.
		s.log.Warn().Err(err).Str("user_id", session.User.ID).Msg("cached email not updated")
	}
	return nil
}

// CreateUser registers another account with the caller's token. The form
// that reaches it is only rendered for admins; the identity service makes
// the real authorization decision.
func (s *accountService) CreateUser(ctx context.Context, sid string, in ports.NewUserInput) error {
	if err := s.begin(sid, domain.OpCreateUser); err != nil {
		return err
	}

	err := s.createUser(context.WithoutCancel(ctx), sid, in)
	s.tracker.Settle(sid, domain.OpCreateUser, err, domain.MsgUserCreated)
	return err
}

func (s *accountService) createUser(ctx context.Context, sid string, in ports.NewUserInput) error {
	session, err := s.Session(ctx, sid)
	if err != nil {
		return err
	}
	if err := s.identity.CreateUser(ctx, session.AccessToken, in); err != nil {
		return err
	}
	s.log.Info().Str("created_by", session.User.ID).Str("role", string(in.Role)).Msg("user created")
	return nil
}

// Session returns the stored session for sid, or domain.ErrNoSession when
// nothing complete is stored.
func (s *accountService) Session(ctx context.Context, sid string) (*domain.Session, error) {
	session, err := s.store.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrNoSession
		}
		return nil, err
	}
	if !session.Present() {
		return nil, domain.ErrNoSession
	}
	return session, nil
}

func (s *accountService) Status(sid string, op domain.Operation) domain.OpStatus {
	return s.tracker.Status(sid, op)
}

func (s *accountService) begin(sid string, op domain.Operation) error {
	if err := s.tracker.Begin(sid, op); err != nil {
		metrics.OperationsRejectedTotal.WithLabelValues(string(op)).Inc()
		s.log.Debug().Str("op", string(op)).Msg("submission rejected while in flight")
		return err
	}
	return nil
}

// write applies mutate to the current session and stores the result with a
// compare-and-swap, re-reading on conflict. mutate receives nil when nothing
// is stored yet.
func (s *accountService) write(ctx context.Context, sid string, mutate func(current *domain.Session) (*domain.Session, error)) error {
	for attempt := 1; ; attempt++ {
		current, err := s.store.Get(ctx, sid)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		err = s.store.Put(ctx, sid, next)
		if !errors.Is(err, domain.ErrStaleSession) {
			return err
		}

		metrics.SessionConflictsTotal.Inc()
		if attempt >= maxWriteAttempts {
			return err
		}
		s.log.Debug().Int("attempt", attempt).Msg("session write conflict, retrying")
	}
}
