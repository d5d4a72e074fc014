package wallet

import (
	"fmt"
	"strings"
)

// State gates which transaction kinds a wallet accepts.
type State uint8

const (
	StateOnline State = iota + 1
	StateOffline
	StateSyncError
	StateAuditBlock
	StateReadOnly
	StateWithdrawOnly
)

var stateNames = map[State]string{
	StateOnline:       "ONLINE",
	StateOffline:      "OFFLINE",
	StateSyncError:    "SYNC_ERROR",
	StateAuditBlock:   "AUDIT_BLOCK",
	StateReadOnly:     "READ_ONLY",
	StateWithdrawOnly: "WITHDRAW_ONLY",
}

// States lists every state in declaration order.
func States() []State {
	return []State{StateOnline, StateOffline, StateSyncError, StateAuditBlock, StateReadOnly, StateWithdrawOnly}
}

// ParseState converts a state name, case-insensitively.
func ParseState(s string) (State, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown wallet state %q", ErrInvalidArgument, s)
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// Permits reports whether a wallet in state s accepts an operation of the given kind.
//
//	state          deposit  withdraw
//	ONLINE         yes      yes
//	WITHDRAW_ONLY  no       yes
//	others         no       no
func (s State) Permits(kind OpKind) bool {
	switch s {
	case StateOnline:
		return kind == OpDeposit || kind == OpWithdraw
	case StateWithdrawOnly:
		return kind == OpWithdraw
	default:
		return false
	}
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: unknown wallet state %d", ErrInvalidArgument, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
