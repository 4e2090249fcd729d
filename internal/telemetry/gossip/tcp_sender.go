package gossip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender pushes a DeltaMsg to a peer relay. HTTPSender is the default
// implementation; tests supply a fake.
type Sender interface {
	SendDelta(url string, msg DeltaMsg) error
}

// HTTPSender implements Sender over plain HTTP POST, grounded on the
// teacher's HTTPTCPSender (same "TCP" naming convention even though the
// transport is HTTP-over-TCP, kept for continuity with the rest of the
// pack's peer-push idiom).
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender returns a Sender bounded by the given per-request
// timeout.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

// SendDelta posts msg as JSON to fmt.Sprintf("%s/delta", url).
func (s *HTTPSender) SendDelta(url string, msg DeltaMsg) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal delta: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url+"/delta", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "swarmcore-gossip/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("peer returned HTTP %d", resp.StatusCode)
	}
	return nil
}
