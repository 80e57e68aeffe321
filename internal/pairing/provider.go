// Package pairing implements the messaging-account pairing session: a
// bounded-lifetime linking attempt that starts an external provider, arbitrates
// its asynchronous events against a deadline, returns exactly one result to the
// caller, and persists the linked handle at most once.
package pairing

import "context"

// EventKind identifies a provider event.
type EventKind string

const (
	// EventCodeIssued carries the scan-code payload the caller must present.
	EventCodeIssued EventKind = "code_issued"
	// EventAuthenticated carries the external handle after the code was scanned.
	EventAuthenticated EventKind = "authenticated"
	// EventReady carries the external handle of an already-linked provider session.
	EventReady EventKind = "ready"
	// EventAuthFailed carries the provider's rejection reason.
	EventAuthFailed EventKind = "auth_failed"
)

// Event is one asynchronous provider signal. Payload holds the code, handle,
// or failure reason depending on Kind.
type Event struct {
	Kind    EventKind
	Payload string
}

// Provider is the external pairing subsystem. Once started it emits events on
// its own schedule, in any order and possibly with duplicates. Stop is
// idempotent and always safe to call more than once.
type Provider interface {
	// Start initializes the provider session. Returning an error fails the
	// pairing session before any event is consumed.
	Start(ctx context.Context) error
	// Events returns the provider's event stream. The channel is closed when
	// the provider session ends.
	Events() <-chan Event
	// Stop tears the provider session down. Idempotent.
	Stop()
}
