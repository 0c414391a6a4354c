package domain

// Operation names one of the four remote calls the front end issues.
type Operation string

const (
	OpLogin         Operation = "login"
	OpFetchProfile  Operation = "fetch_profile"
	OpUpdateProfile Operation = "update_profile"
	OpCreateUser    Operation = "create_user"
)

// OpState is the lifecycle state of one operation for one session.
type OpState string

const (
	OpIdle    OpState = "idle"
	OpPending OpState = "pending"
	OpSuccess OpState = "success"
	OpError   OpState = "error"
)

// validOpTransitions is the per-operation state machine. A settled operation
// returns to idle only when the user submits again.
var validOpTransitions = map[OpState][]OpState{
	OpIdle:    {OpPending},
	OpPending: {OpSuccess, OpError},
	OpSuccess: {OpIdle},
	OpError:   {OpIdle},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OpState) CanTransitionTo(next OpState) bool {
	for _, allowed := range validOpTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OpStatus is the observable state of an operation: its state plus the
// message the page shows once it settles.
type OpStatus struct {
	State   OpState
	Message string
}

// InFlight reports whether a request for this operation is still pending.
func (s OpStatus) InFlight() bool {
	return s.State == OpPending
}
