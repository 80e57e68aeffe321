package pairing

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// State is the session's lifecycle state. Exactly one is active at any instant.
type State string

const (
	StateStarting             State = "starting"
	StateAwaitingCode         State = "awaiting_code"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateResolved             State = "resolved"
	StateFailed               State = "failed"
	StateExpired              State = "expired"
)

// Result statuses returned to the caller.
const (
	StatusCode   = "code"
	StatusLinked = "linked"
)

// Result is the session's single caller-facing success value: either a
// scan-code payload or the marker that the account was already linked.
type Result struct {
	Status string
	Code   string
}

// IdentityStore persists the linked handle, keyed by owner. The write is
// per-key atomic; the session issues at most one upsert.
type IdentityStore interface {
	UpsertMessagingHandle(ctx context.Context, ownerID, handle string) error
}

// Config holds the session's fixed policy values.
type Config struct {
	// WaitTimeout bounds how long the caller waits for a caller-facing
	// terminal event, and also bounds the background persistence window.
	WaitTimeout time.Duration
	// TeardownGrace is the delay between a persistence attempt finishing and
	// provider teardown, allowing the provider's own in-flight writes to land.
	TeardownGrace time.Duration
}

type outcome struct {
	result Result
	err    error
}

// Session arbitrates one pairing attempt. All provider events and the deadline
// timer funnel through a single mutex so the first caller-facing terminal
// signal wins and everything after it is ignored.
type Session struct {
	ownerID  string
	provider Provider
	identity IdentityStore
	cfg      Config

	mu        sync.Mutex
	state     State
	resolved  bool // caller-facing result decided
	persisted bool // identity upsert issued

	deadlineAt time.Time
	timer      *time.Timer
	callerCh   chan outcome
	teardown   sync.Once
}

// NewSession returns a session for ownerID. Run may be called once.
func NewSession(ownerID string, provider Provider, identity IdentityStore, cfg Config) *Session {
	return &Session{
		ownerID:  ownerID,
		provider: provider,
		identity: identity,
		cfg:      cfg,
		state:    StateStarting,
		callerCh: make(chan outcome, 1),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run starts the provider, arms the deadline, and blocks until the first
// caller-facing terminal event. Background work (persistence, teardown)
// continues after Run returns.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if err := s.provider.Start(ctx); err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.resolved = true
		s.mu.Unlock()
		return Result{}, status.Errorf(codes.Unavailable, "pairing provider failed to start: %v", err)
	}

	s.mu.Lock()
	s.state = StateAwaitingCode
	s.deadlineAt = time.Now().Add(s.cfg.WaitTimeout)
	s.timer = time.AfterFunc(s.cfg.WaitTimeout, s.onDeadline)
	s.mu.Unlock()

	go s.consume()

	out := <-s.callerCh
	return out.result, out.err
}

// consume serializes the provider's event stream into the arbitration point.
// When the stream ends the provider session is over; tear down if nothing
// else already has.
func (s *Session) consume() {
	for ev := range s.provider.Events() {
		s.handleEvent(ev)
	}
	s.teardownNow()
}

func (s *Session) handleEvent(ev Event) {
	switch ev.Kind {
	case EventCodeIssued:
		s.onCodeIssued(ev.Payload)
	case EventAuthenticated:
		s.onHandle(ev.Payload, false)
	case EventReady:
		s.onHandle(ev.Payload, true)
	case EventAuthFailed:
		s.onAuthFailed(ev.Payload)
	default:
		log.Printf("pairing: owner %s: ignoring unknown event %q", s.ownerID, ev.Kind)
	}
}

// onCodeIssued resolves the caller with the code payload. The provider session
// keeps running in the background toward authentication, so the session moves
// to awaiting confirmation and stays live for persistence until the deadline.
func (s *Session) onCodeIssued(code string) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.state = StateAwaitingConfirmation
	s.timer.Stop()
	// The provider must not outlive the original deadline even though the
	// caller already has its result.
	time.AfterFunc(time.Until(s.deadlineAt), s.teardownNow)
	s.mu.Unlock()

	s.callerCh <- outcome{result: Result{Status: StatusCode, Code: code}}
}

// onHandle handles Authenticated and Ready. Ready additionally resolves the
// caller with the already-linked marker when no code was ever issued;
// Authenticated never resolves the caller. Either kind triggers at most one
// identity upsert, after which teardown follows the grace delay.
func (s *Session) onHandle(rawHandle string, ready bool) {
	s.mu.Lock()
	if s.state == StateFailed || s.state == StateExpired {
		// A failed or expired session persists nothing, even if the provider
		// emits a handle during asynchronous teardown.
		s.mu.Unlock()
		return
	}
	resolveCaller := ready && !s.resolved
	if resolveCaller {
		s.resolved = true
		s.timer.Stop()
	}
	persist := !s.persisted
	s.persisted = true
	s.state = StateResolved
	deadlineAt := s.deadlineAt
	s.mu.Unlock()

	if resolveCaller {
		s.callerCh <- outcome{result: Result{Status: StatusLinked}}
	}
	if !persist {
		return
	}

	// The caller is not waiting on this write; bound it by the session's
	// original deadline instead of a request context.
	ctx, cancel := context.WithDeadline(context.Background(), deadlineAt)
	defer cancel()
	handle := NormalizeHandle(rawHandle)
	if err := s.identity.UpsertMessagingHandle(ctx, s.ownerID, handle); err != nil {
		log.Printf("pairing: owner %s: failed to persist linked handle: %v", s.ownerID, err)
	}
	if s.cfg.TeardownGrace > 0 {
		time.AfterFunc(s.cfg.TeardownGrace, s.teardownNow)
	} else {
		s.teardownNow()
	}
}

func (s *Session) onAuthFailed(reason string) {
	s.mu.Lock()
	if s.resolved {
		// A failure during the background confirmation phase ends the
		// session unauthenticated; nothing may be persisted after it.
		if s.state == StateAwaitingConfirmation {
			s.state = StateFailed
		}
		s.mu.Unlock()
		s.teardownNow()
		return
	}
	s.resolved = true
	s.state = StateFailed
	s.timer.Stop()
	s.mu.Unlock()

	s.callerCh <- outcome{err: status.Errorf(codes.Internal, "pairing authentication failed: %s", reason)}
	s.teardownNow()
}

// onDeadline fires when the wait timeout elapses with no caller-facing
// terminal event. A no-op if anything else won the race first.
func (s *Session) onDeadline() {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.state = StateExpired
	s.mu.Unlock()

	s.callerCh <- outcome{err: status.Error(codes.DeadlineExceeded, "pairing timed out waiting for the provider")}
	s.teardownNow()
}

// teardownNow stops the provider exactly once.
func (s *Session) teardownNow() {
	s.teardown.Do(func() {
		s.provider.Stop()
	})
}

// NormalizeHandle reduces a provider-reported identifier to a normalized
// phone-style handle: leading "+" followed by digits only.
func NormalizeHandle(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return "+" + b.String()
}
