package poolbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Refresh failure errors. [Outcome.Err] wraps exactly one of these.
var (
	ErrTimeout    = errors.New("timeout connecting to device")
	ErrConnection = errors.New("error connecting to device")
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrParse      = errors.New("invalid JSON document")
	ErrUnknown    = errors.New("unknown error")
	ErrCanceled   = errors.New("refresh canceled")
)

// Setup and configuration errors.
var (
	// ErrSetupFailed wraps every first-contact failure returned by
	// [Coordinator.FirstRefresh].
	ErrSetupFailed = errors.New("target setup failed")

	// ErrCannotConnect classifies a setup failure caused by the device
	// being unreachable or answering with a non-200 status.
	ErrCannotConnect = errors.New("cannot connect")

	// ErrDuplicateTarget is returned when a host and path pair is
	// configured twice.
	ErrDuplicateTarget = errors.New("target already configured")
)

// FailureReason classifies the result of a refresh.
type FailureReason int

const (
	// ReasonNone marks a successful refresh.
	ReasonNone FailureReason = iota

	// ReasonTimeout means no complete response arrived within the request timeout.
	ReasonTimeout

	// ReasonConnection means the transport failed (refused, reset, DNS, ...).
	ReasonConnection

	// ReasonHTTPStatus means the device answered with a status other than 200.
	ReasonHTTPStatus

	// ReasonParse means the body was not a JSON object.
	ReasonParse

	// ReasonUnknown covers everything else, including recovered panics.
	ReasonUnknown

	// ReasonCanceled means the refresh was abandoned because the target was
	// torn down or the caller's context ended. Such outcomes are never stored.
	ReasonCanceled
)

// String returns a stable snake_case name for the reason.
func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonTimeout:
		return "timeout"
	case ReasonConnection:
		return "connection_error"
	case ReasonHTTPStatus:
		return "http_status"
	case ReasonParse:
		return "parse_error"
	case ReasonUnknown:
		return "unknown"
	case ReasonCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Outcome is the result of one refresh of one target.
//
// Outcome is a plain value: it is produced once by [Coordinator.Refresh]
// and never modified afterwards. Snapshot is only set when the refresh
// succeeded.
type Outcome struct {
	// Target is the display name of the refreshed target.
	Target string

	// URL is the address that was polled.
	URL string

	// Reason classifies the result. [ReasonNone] means success.
	Reason FailureReason

	// StatusCode is the HTTP status returned by the device.
	// Zero if no response was received.
	StatusCode int

	// Message is a human-readable description of the failure.
	Message string

	// Snapshot is the parsed document of a successful refresh.
	Snapshot Value

	// CheckedAt is when the refresh completed.
	CheckedAt time.Time

	// Latency is the time taken by the HTTP request.
	Latency time.Duration
}

// OK reports whether the refresh succeeded.
func (o Outcome) OK() bool {
	return o.Reason == ReasonNone
}

// Err returns nil for a successful outcome, otherwise an error wrapping the
// sentinel matching the reason ([ErrTimeout], [ErrConnection],
// [ErrHTTPStatus], [ErrParse], [ErrUnknown] or [ErrCanceled]).
func (o Outcome) Err() error {
	var sentinel error
	switch o.Reason {
	case ReasonNone:
		return nil
	case ReasonTimeout:
		sentinel = ErrTimeout
	case ReasonConnection:
		sentinel = ErrConnection
	case ReasonHTTPStatus:
		if o.Message == "" {
			return fmt.Errorf("%w: %d", ErrHTTPStatus, o.StatusCode)
		}
		sentinel = ErrHTTPStatus
	case ReasonParse:
		sentinel = ErrParse
	case ReasonCanceled:
		sentinel = ErrCanceled
	default:
		sentinel = ErrUnknown
	}
	// messages often already start with the sentinel text
	msg := strings.TrimPrefix(o.Message, sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
