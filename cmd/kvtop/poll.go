package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/api"
)

// nodeResult is one node's status or the error fetching it.
type nodeResult struct {
	Addr   string
	Status api.Status
	Err    error
}

// poller fetches /status from every node concurrently.
type poller struct {
	client *http.Client
	addrs  []string
}

func newPoller(addrs []string, timeout time.Duration) *poller {
	return &poller{
		client: &http.Client{Timeout: timeout},
		addrs:  addrs,
	}
}

// poll returns one result per address, in address order.
func (p *poller) poll(ctx context.Context) []nodeResult {
	results := make([]nodeResult, len(p.addrs))

	var wg sync.WaitGroup
	for i, addr := range p.addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := p.fetch(ctx, addr)
			results[i] = nodeResult{Addr: addr, Status: st, Err: err}
		}()
	}
	wg.Wait()
	return results
}

func (p *poller) fetch(ctx context.Context, addr string) (api.Status, error) {
	var st api.Status

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/status", nil)
	if err != nil {
		return st, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("failed to decode status: %w", err)
	}
	return st, nil
}
