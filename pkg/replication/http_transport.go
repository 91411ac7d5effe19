package replication

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Peer endpoint paths and form fields shared with the HTTP server.
const (
	PingPath      = "/ping"
	ReplicatePath = "/internal/replicate"

	ReplicateKeyField   = "key"
	ReplicateValueField = "value"
)

// ReplicateForm encodes one write as the replication-apply request body.
// Keys and values travel byte for byte, including empty values and "..".
func ReplicateForm(key, value string) url.Values {
	return url.Values{
		ReplicateKeyField:   {key},
		ReplicateValueField: {value},
	}
}

// HTTPTransport talks to peers over their HTTP API.
type HTTPTransport struct {
	client *http.Client
}

var _ PeerClient = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport using client, or a pooled default
// client when client is nil. Per-call deadlines come from the context.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}
	return &HTTPTransport{client: client}
}

// Probe issues GET /ping.
func (t *HTTPTransport) Probe(ctx context.Context, addr string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+PingPath, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return t.do(req)
}

// Replicate issues POST /internal/replicate with the write as a form body.
func (t *HTTPTransport) Replicate(ctx context.Context, addr, key, value string) error {
	body := strings.NewReader(ReplicateForm(key, value).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+ReplicatePath, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req)
}

func (t *HTTPTransport) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach peer: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s returned %d", ErrPeerRejected, req.Method, req.URL.Path, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
