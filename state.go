package poolbridge

import "fmt"

// State is the lifecycle state of a [Coordinator].
//
//	Uninitialized --success--> Ready
//	Ready         --failure--> Degraded   (last snapshot kept)
//	Degraded      --success--> Ready
//	Degraded      --failure--> Degraded
//
// A coordinator whose very first refresh fails stays Uninitialized; the
// caller is expected to report the setup failure and discard it.
type State int

const (
	// StateUninitialized means no refresh has succeeded yet.
	StateUninitialized State = iota

	// StateReady means the most recent refresh succeeded.
	StateReady

	// StateDegraded means the most recent refresh failed but an earlier
	// snapshot is still being served.
	StateDegraded
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
