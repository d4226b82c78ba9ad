package poolbridge

import (
	"context"
	"errors"
	"fmt"
)

// Setup error codes shown to whoever is adding a target.
const (
	SetupCodeCannotConnect = "cannot_connect"
	SetupCodeUnknown       = "unknown"
)

// ValidateTarget performs one test fetch against cfg, the way a new target
// is checked before it is added.
//
// It returns nil if the controller answered 200 with a JSON object. A
// non-200 status, connection failure or timeout yields an error wrapping
// [ErrCannotConnect]; any other failure wraps [ErrUnknown]. Use
// [SetupErrorCode] to turn the error into a stable code.
func ValidateTarget(ctx context.Context, cfg TargetConfig, opts ...CoordinatorOption) error {
	c := NewCoordinator(cfg, opts...)
	defer c.Close()

	out := c.Refresh(ctx)
	if out.OK() {
		return nil
	}
	return classifySetupFailure(out)
}

// SetupErrorCode maps an error returned by [ValidateTarget] or
// [Coordinator.FirstRefresh] to "cannot_connect" or "unknown".
// It returns "" for a nil error.
func SetupErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCannotConnect):
		return SetupCodeCannotConnect
	default:
		return SetupCodeUnknown
	}
}

// classifySetupFailure wraps a failed outcome with its setup classification.
func classifySetupFailure(out Outcome) error {
	switch out.Reason {
	case ReasonHTTPStatus, ReasonConnection, ReasonTimeout:
		return fmt.Errorf("%w: %w", ErrCannotConnect, out.Err())
	case ReasonUnknown:
		return out.Err()
	default:
		return fmt.Errorf("%w: %w", ErrUnknown, out.Err())
	}
}
