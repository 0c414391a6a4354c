package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

type trackerKey struct {
	sid string
	op  domain.Operation
}

type trackedOp struct {
	status    domain.OpStatus
	updatedAt time.Time
}

// Tracker holds the idle → pending → success|error state machine of every
// operation, per browser session. At most one request per (session,
// operation) is pending at any time.
type Tracker struct {
	mu  sync.Mutex
	ops map[trackerKey]*trackedOp
	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{ops: make(map[trackerKey]*trackedOp), now: time.Now}
}

// Begin marks op as pending for sid. A settled operation first returns to
// idle, which is what a re-submission means. It fails with
// domain.ErrOperationInFlight while a previous request is unresolved.
func (t *Tracker) Begin(sid string, op domain.Operation) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(sid, op)
	if entry.status.InFlight() {
		return domain.ErrOperationInFlight
	}
	if entry.status.State != domain.OpIdle {
		if err := t.transition(entry, domain.OpIdle, ""); err != nil {
			return err
		}
	}
	return t.transition(entry, domain.OpPending, "")
}

// Settle resolves a pending operation. A nil err moves it to success with
// successMsg; anything else moves it to error with the error's user message.
func (t *Tracker) Settle(sid string, op domain.Operation, err error, successMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.entry(sid, op)
	if err != nil {
		_ = t.transition(entry, domain.OpError, domain.Message(err))
		return
	}
	_ = t.transition(entry, domain.OpSuccess, successMsg)
}

// Status returns the current state of op for sid; unknown pairs are idle.
func (t *Tracker) Status(sid string, op domain.Operation) domain.OpStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.ops[trackerKey{sid: sid, op: op}]; ok {
		return entry.status
	}
	return domain.OpStatus{State: domain.OpIdle}
}

// Prune drops settled entries untouched for longer than maxAge and reports
// how many were removed. Pending entries are always kept.
func (t *Tracker) Prune(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	removed := 0
	for key, entry := range t.ops {
		if !entry.status.InFlight() && entry.updatedAt.Before(cutoff) {
			delete(t.ops, key)
			removed++
		}
	}
	return removed
}

// StartPruning runs Prune every interval in a background goroutine until ctx
// is cancelled.
func (t *Tracker) StartPruning(ctx context.Context, interval, maxAge time.Duration, log zerolog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := t.Prune(maxAge); n > 0 {
					log.Debug().Int("removed", n).Msg("pruned settled operations")
				}
			}
		}
	}()
}

func (t *Tracker) entry(sid string, op domain.Operation) *trackedOp {
	key := trackerKey{sid: sid, op: op}
	entry, ok := t.ops[key]
	if !ok {
		entry = &trackedOp{status: domain.OpStatus{State: domain.OpIdle}, updatedAt: t.now()}
		t.ops[key] = entry
	}
	return entry
}

func (t *Tracker) transition(entry *trackedOp, next domain.OpState, msg string) error {
	if !entry.status.State.CanTransitionTo(next) {
		return domain.ErrInvalidTransition
	}
	entry.status = domain.OpStatus{State: next, Message: msg}
	entry.updatedAt = t.now()
	return nil
}
