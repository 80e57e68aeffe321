package pairing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeProvider is a channel-driven Provider for tests. Stop closes the event
// stream and counts invocations; onStop, if set, runs on the first Stop.
type fakeProvider struct {
	startErr error
	events   chan Event

	mu      sync.Mutex
	stops   int
	onStop  func()
	stopped bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(chan Event, 8)}
}

func (p *fakeProvider) Start(ctx context.Context) error { return p.startErr }

func (p *fakeProvider) Events() <-chan Event { return p.events }

func (p *fakeProvider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if p.stopped {
		return
	}
	p.stopped = true
	if p.onStop != nil {
		p.onStop()
	}
	close(p.events)
}

func (p *fakeProvider) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *fakeProvider) emit(kind EventKind, payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.events <- Event{Kind: kind, Payload: payload}
}

// fakeIdentity records upserts and signals each one on done.
type fakeIdentity struct {
	mu      sync.Mutex
	handles map[string]string
	upserts int
	err     error
	done    chan struct{}
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{handles: make(map[string]string), done: make(chan struct{}, 8)}
}

func (f *fakeIdentity) UpsertMessagingHandle(ctx context.Context, ownerID, handle string) error {
	f.mu.Lock()
	f.upserts++
	if f.err == nil {
		f.handles[ownerID] = handle
	}
	f.mu.Unlock()
	f.done <- struct{}{}
	return f.err
}

func (f *fakeIdentity) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakeIdentity) handleOf(ownerID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.handles[ownerID]
	return h, ok
}

func testConfig() Config {
	return Config{WaitTimeout: 2 * time.Second, TeardownGrace: 10 * time.Millisecond}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_CodeIssuedThenAuthenticated(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	session := NewSession("u1", provider, identity, testConfig())

	go provider.emit(EventCodeIssued, "ABC123")

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCode || result.Code != "ABC123" {
		t.Fatalf("result = %+v, want status %q code %q", result, StatusCode, "ABC123")
	}
	if got := session.State(); got != StateAwaitingConfirmation {
		t.Errorf("state = %q, want %q", got, StateAwaitingConfirmation)
	}

	// The provider authenticates later in the background.
	provider.emit(EventAuthenticated, "15551234567")
	<-identity.done
	if got := session.State(); got != StateResolved {
		t.Errorf("state = %q, want %q after authentication", got, StateResolved)
	}

	handle, ok := identity.handleOf("u1")
	if !ok {
		t.Fatal("no identity record written for u1")
	}
	if handle != "+15551234567" {
		t.Errorf("handle = %q, want %q", handle, "+15551234567")
	}

	// A duplicate Authenticated event must not trigger a second upsert.
	provider.emit(EventAuthenticated, "15551234567")
	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	if got := identity.upsertCount(); got != 1 {
		t.Errorf("upserts = %d, want 1", got)
	}
}

func TestSession_Timeout(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	cfg := Config{WaitTimeout: 50 * time.Millisecond, TeardownGrace: 10 * time.Millisecond}
	session := NewSession("u2", provider, identity, cfg)

	_, err := session.Run(context.Background())
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("Run error = %v, want %s", err, codes.DeadlineExceeded)
	}
	if got := session.State(); got != StateExpired {
		t.Errorf("state = %q, want %q", got, StateExpired)
	}
	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	if _, ok := identity.handleOf("u2"); ok {
		t.Error("identity record written for u2, want none")
	}
}

func TestSession_AuthFailed(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	session := NewSession("u1", provider, identity, testConfig())

	go provider.emit(EventAuthFailed, "rejected by account owner")

	_, err := session.Run(context.Background())
	if status.Code(err) != codes.Internal {
		t.Fatalf("Run error = %v, want %s", err, codes.Internal)
	}
	if got := session.State(); got != StateFailed {
		t.Errorf("state = %q, want %q", got, StateFailed)
	}
	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	if got := identity.upsertCount(); got != 0 {
		t.Errorf("upserts = %d, want 0", got)
	}
}

func TestSession_ReadyWithoutCode(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()

	// The upsert must have completed by the time teardown runs.
	upsertsAtStop := -1
	provider.onStop = func() { upsertsAtStop = identity.upsertCount() }

	session := NewSession("u1", provider, identity, testConfig())
	go provider.emit(EventReady, "15551234567")

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusLinked {
		t.Errorf("result status = %q, want %q", result.Status, StatusLinked)
	}

	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	if handle, _ := identity.handleOf("u1"); handle != "+15551234567" {
		t.Errorf("handle = %q, want %q", handle, "+15551234567")
	}
	if upsertsAtStop != 1 {
		t.Errorf("upserts at teardown = %d, want 1", upsertsAtStop)
	}
}

func TestSession_ProviderInitError(t *testing.T) {
	provider := newFakeProvider()
	provider.startErr = errors.New("bridge unreachable")
	session := NewSession("u1", provider, newFakeIdentity(), testConfig())

	_, err := session.Run(context.Background())
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("Run error = %v, want %s", err, codes.Unavailable)
	}
	if got := session.State(); got != StateFailed {
		t.Errorf("state = %q, want %q", got, StateFailed)
	}
}

func TestSession_FirstEventWins(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	session := NewSession("u1", provider, identity, testConfig())

	// Both a success and a failure race in; only the first may decide the result.
	go func() {
		provider.emit(EventCodeIssued, "FIRST")
		provider.emit(EventAuthFailed, "late failure")
		provider.emit(EventCodeIssued, "SECOND")
	}()

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != "FIRST" {
		t.Errorf("code = %q, want %q", result.Code, "FIRST")
	}
	// The late failure only ends the background confirmation phase; it can
	// never change the caller's result, and nothing is persisted after it.
	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	if got := session.State(); got != StateFailed {
		t.Errorf("state = %q, want %q after background failure", got, StateFailed)
	}
	if got := identity.upsertCount(); got != 0 {
		t.Errorf("upserts = %d, want 0", got)
	}
}

func TestSession_NoPersistenceAfterAuthFailure(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	session := NewSession("u1", provider, identity, testConfig())

	// A handle already queued behind the failure must not be persisted.
	provider.emit(EventAuthFailed, "rejected by account owner")
	provider.emit(EventAuthenticated, "15551234567")

	_, err := session.Run(context.Background())
	if status.Code(err) != codes.Internal {
		t.Fatalf("Run error = %v, want %s", err, codes.Internal)
	}

	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	if got := identity.upsertCount(); got != 0 {
		t.Errorf("upserts = %d, want 0", got)
	}
}

func TestSession_NoPersistenceAfterTimeout(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	cfg := Config{WaitTimeout: 50 * time.Millisecond, TeardownGrace: 10 * time.Millisecond}
	session := NewSession("u2", provider, identity, cfg)

	done := make(chan struct{})
	go func() {
		session.Run(context.Background())
		close(done)
	}()
	<-done

	// A handle arriving during asynchronous teardown must not be persisted.
	provider.emit(EventAuthenticated, "15550000000")
	time.Sleep(50 * time.Millisecond)
	if got := identity.upsertCount(); got != 0 {
		t.Errorf("upserts = %d, want 0", got)
	}
}

func TestSession_PersistenceErrorNotSurfaced(t *testing.T) {
	provider := newFakeProvider()
	identity := newFakeIdentity()
	identity.err = errors.New("store down")
	session := NewSession("u1", provider, identity, testConfig())

	go provider.emit(EventCodeIssued, "ABC123")

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCode {
		t.Fatalf("result status = %q, want %q", result.Status, StatusCode)
	}

	provider.emit(EventAuthenticated, "15551234567")
	<-identity.done
	// The failed write is logged only; the session still tears down cleanly.
	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
}

func TestSession_StopIdempotent(t *testing.T) {
	provider := newFakeProvider()
	session := NewSession("u1", provider, newFakeIdentity(), testConfig())

	go provider.emit(EventAuthFailed, "nope")
	session.Run(context.Background())

	waitFor(t, "teardown", func() bool { return provider.stopCount() > 0 })
	// Extra Stop calls are always safe.
	provider.Stop()
	provider.Stop()
	if provider.stopCount() < 3 {
		t.Fatalf("stop count = %d, want >= 3", provider.stopCount())
	}
}

func TestNormalizeHandle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"15551234567", "+15551234567"},
		{"+1 (555) 123-4567", "+15551234567"},
		{"12345@host", "+12345"},
		{"", "+"},
	}
	for _, c := range cases {
		if got := NormalizeHandle(c.in); got != c.want {
			t.Errorf("NormalizeHandle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
