package blossom

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sandwichfarm/nsyte/internal/hasher"
)

// ProbeBatchSize bounds how many files are probed concurrently.
const ProbeBatchSize = 5

// ProbeFanout bounds how many servers one file's probe checks concurrently.
const ProbeFanout = 3

// SkipThreshold is the number of consecutive failures after which a server is
// considered unhealthy. Only RecordSuccess clears the streak, and the Prober does not
// probe an unhealthy server, so once tripped it stays skipped for that Prober's lifetime.
const SkipThreshold = 3

// ProbeBaseTimeout is the first HEAD attempt's deadline (spec.md §4.G: "starting at
// 5s and growing 2s per retry").
const ProbeBaseTimeout = 5 * time.Second

// ProbeTimeoutStep is how much the per-attempt timeout grows on each retry.
const ProbeTimeoutStep = 2 * time.Second

// ProbeMaxRetries is the retry budget for one (digest, server) probe, for 3 total
// attempts at 5s/7s/9s.
const ProbeMaxRetries = 2

// ServerHealth is a simple consecutive-failure circuit breaker, one per server,
// shared across a run's probes so a server that starts failing doesn't keep eating
// every file's timeout budget.
type ServerHealth struct {
	mu                  sync.Mutex
	consecutiveFailures map[string]int
}

// NewServerHealth returns a breaker tracking the given servers, all initially healthy.
func NewServerHealth(servers []string) *ServerHealth {
	h := &ServerHealth{consecutiveFailures: make(map[string]int, len(servers))}
	for _, s := range servers {
		h.consecutiveFailures[s] = 0
	}
	return h
}

// Healthy reports whether server is currently below SkipThreshold consecutive
// failures.
func (h *ServerHealth) Healthy(server string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFailures[server] < SkipThreshold
}

// RecordSuccess resets a server's failure streak. A 404 is an authoritative "not
// present" answer, not a server fault, so probe callers record it as success too.
func (h *ServerHealth) RecordSuccess(server string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures[server] = 0
}

// RecordFailure increments a server's failure streak.
func (h *ServerHealth) RecordFailure(server string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures[server]++
}

// ProbeResult is one file's presence check across every healthy server.
type ProbeResult struct {
	Digest    hasher.Digest
	Present   bool
	OnServers []string
}

// Prober checks whether already-uploaded blobs are actually retrievable from each
// server (spec.md §4.G). `nsyte ls` uses it to report per-file presence; the sync
// pipeline's "unchanged" classification does not consult it.
type Prober struct {
	servers    []string
	httpClient *http.Client
	health     *ServerHealth
}

// NewProber builds a Prober over servers, with its own ServerHealth breaker.
func NewProber(servers []string) *Prober {
	return &Prober{
		servers:    servers,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		health:     NewServerHealth(servers),
	}
}

// ProbeAll checks presence for every digest, ProbeBatchSize at a time. A file already
// uploaded earlier in the same run is still re-probed: the manifest and the blob
// store can disagree, and this run is the only chance to catch that before it's
// reported as in sync.
func (p *Prober) ProbeAll(ctx context.Context, digests []hasher.Digest) ([]ProbeResult, error) {
	results := make([]ProbeResult, len(digests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ProbeBatchSize)

	for i, d := range digests {
		i, d := i, d
		g.Go(func() error {
			results[i] = p.probeOne(gctx, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Prober) probeOne(ctx context.Context, d hasher.Digest) ProbeResult {
	var mu sync.Mutex
	var onServers []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ProbeFanout)

	for _, server := range p.servers {
		server := server
		if !p.health.Healthy(server) {
			continue
		}
		g.Go(func() error {
			ok := p.probeServer(gctx, server, d.SHA256)
			if ok {
				mu.Lock()
				onServers = append(onServers, server)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return ProbeResult{Digest: d, Present: len(onServers) > 0, OnServers: onServers}
}

// probeServer issues a HEAD request with a retry-growing timeout (5s, 7s, 9s),
// folding the result into the shared ServerHealth breaker. A non-authoritative
// outcome (timeout, connection error) is retried with backoff up to ProbeMaxRetries;
// an authoritative answer (200 or 404) stops retrying immediately.
func (p *Prober) probeServer(ctx context.Context, server, sha256hex string) bool {
	attempt := 0
	present := false

	op := func() error {
		timeout := ProbeBaseTimeout + time.Duration(attempt)*ProbeTimeoutStep
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		ok, authoritative := headOnce(reqCtx, p.httpClient, server, sha256hex)
		cancel()
		attempt++

		if ok {
			present = true
			p.health.RecordSuccess(server)
			return nil
		}
		if authoritative {
			// 404: the server answered, the blob just isn't there.
			p.health.RecordSuccess(server)
			return nil
		}
		return fmt.Errorf("probing %s: no authoritative response", server)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(1*time.Second),
		backoff.WithMultiplier(2),
		backoff.WithMaxElapsedTime(0),
	), ProbeMaxRetries)

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		p.health.RecordFailure(server)
		return false
	}
	return present
}

// headOnce returns (present, authoritative). authoritative is true when the server
// gave a definite answer (200 or 404) rather than a connection/timeout failure.
func headOnce(ctx context.Context, client *http.Client, server, sha256hex string) (bool, bool) {
	url := fmt.Sprintf("%s/%s", server, sha256hex)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, true
	case http.StatusNotFound:
		return false, true
	default:
		return false, false
	}
}
