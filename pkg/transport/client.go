package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crdtlab/replikit/pkg/replication"
)

// Client sends replication.Protocol[D] messages to a remote replica's
// Server and decodes the reply, the network-facing mirror of
// replication.Replicator.Send.
type Client[D any] struct {
	http *http.Client
}

func NewClient[D any](timeout time.Duration) *Client[D] {
	return &Client[D]{http: &http.Client{Timeout: timeout}}
}

// Send posts msg to baseURL+"/protocol" and decodes the remote reply.
func (c *Client[D]) Send(ctx context.Context, baseURL string, msg replication.Protocol[D]) (replication.Protocol[D], error) {
	var zero replication.Protocol[D]

	body, err := json.Marshal(msg)
	if err != nil {
		return zero, fmt.Errorf("transport: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/protocol", bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("transport: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "replikit/1.0")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("transport: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, fmt.Errorf("transport: remote status %d", resp.StatusCode)
	}

	var reply replication.Protocol[D]
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return zero, fmt.Errorf("transport: decode reply: %w", err)
	}
	return reply, nil
}
