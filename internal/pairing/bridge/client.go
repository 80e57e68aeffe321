// Package bridge implements pairing.Provider against the messaging bridge's
// HTTP API: one POST to open a session, a streamed NDJSON event feed, and a
// DELETE to tear the session down.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"invoicing-platform/backend/internal/pairing"
)

const apiTimeout = 15 * time.Second

// Client talks to the pairing bridge. One Client serves many sessions.
type Client struct {
	baseURL string
	// api is used for session create/delete; stream carries the long-lived
	// event feed and must not have a client-level timeout.
	api    *http.Client
	stream *http.Client
}

// NewClient returns a bridge client for the given base URL (e.g. http://bridge:8090).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		api:     &http.Client{Timeout: apiTimeout},
		// The feed stays open for the whole session, so no client-level
		// timeout; only the wait for response headers is bounded, so a
		// silent bridge cannot hang Start.
		stream: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: apiTimeout},
		},
	}
}

// Factory returns a provider factory backed by this bridge.
func (c *Client) Factory() pairing.ProviderFactory {
	return func(ownerID string) pairing.Provider {
		return &session{client: c, ownerID: ownerID, events: make(chan pairing.Event, 16)}
	}
}

// session is one provider instance. It is owned exclusively by the pairing
// session that created it.
type session struct {
	client    *Client
	ownerID   string
	sessionID string
	events    chan pairing.Event
	cancel    context.CancelFunc
	stop      sync.Once
}

type createRequest struct {
	OwnerID string `json:"ownerId"`
}

type createResponse struct {
	SessionID string `json:"sessionId"`
}

// wireEvent is one NDJSON line on the event feed.
type wireEvent struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// Start opens a bridge session and begins streaming its events.
func (s *session) Start(ctx context.Context) error {
	raw, err := json.Marshal(createRequest{OwnerID: s.ownerID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+"/v1/sessions", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge: create session failed status=%d body=%s", resp.StatusCode, string(b))
	}
	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("bridge: decode create response: %w", err)
	}
	if created.SessionID == "" {
		return fmt.Errorf("bridge: create response missing sessionId")
	}
	s.sessionID = created.SessionID

	// The feed outlives the start request; it is cancelled by Stop.
	streamCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	feed, err := s.openFeed(streamCtx)
	if err != nil {
		cancel()
		return err
	}
	go s.readFeed(feed)
	return nil
}

func (s *session) openFeed(ctx context.Context) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s/events", s.client.baseURL, s.sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")
	resp, err := s.client.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("bridge: event feed failed status=%d", resp.StatusCode)
	}
	return resp.Body, nil
}

// readFeed forwards NDJSON events until the feed ends, then closes the event
// channel. Only this goroutine closes the channel.
func (s *session) readFeed(feed io.ReadCloser) {
	defer close(s.events)
	defer feed.Close()
	scanner := bufio.NewScanner(feed)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Printf("bridge: session %s: malformed event line: %v", s.sessionID, err)
			continue
		}
		s.events <- pairing.Event{Kind: pairing.EventKind(ev.Type), Payload: ev.Payload}
	}
	if err := scanner.Err(); err != nil && !strings.Contains(err.Error(), "context canceled") {
		log.Printf("bridge: session %s: event feed ended: %v", s.sessionID, err)
	}
}

// Events returns the session's event stream.
func (s *session) Events() <-chan pairing.Event { return s.events }

// Stop cancels the event feed and deletes the bridge session. Idempotent.
func (s *session) Stop() {
	s.stop.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.sessionID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		url := fmt.Sprintf("%s/v1/sessions/%s", s.client.baseURL, s.sessionID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
		if err != nil {
			return
		}
		resp, err := s.client.api.Do(req)
		if err != nil {
			log.Printf("bridge: session %s: delete failed: %v", s.sessionID, err)
			return
		}
		resp.Body.Close()
	})
}
