package nostr

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fiatjaf.com/nostr"
)

// DefaultConnectTimeout bounds a single relay connection attempt.
const DefaultConnectTimeout = 10 * time.Second

// DefaultPublishTimeout bounds a single relay's round trip for one event (spec.md §4.F).
const DefaultPublishTimeout = 5 * time.Second

// DefaultPublishHardTimeout is the absolute ceiling on a publish round trip including
// its retry.
const DefaultPublishHardTimeout = 10 * time.Second

// PublishRetries is the small retry budget applied per relay per event (spec.md §4.F).
const PublishRetries = 1

// RelayPool manages independent connections to a set of relays and exposes
// per-relay-accounted publish and subscribe operations. Unlike a pub/sub client that
// hides relay identity, every operation here reports which relay did what, because the
// Event Publisher (§4.F) and Progress Collector (§4.I) both need that detail.
type RelayPool struct {
	mu     sync.RWMutex
	urls   []string
	relays map[string]*nostr.Relay
	closed bool
}

// NewRelayPool connects to each URL independently; a relay that fails to connect is
// logged and omitted, not treated as fatal (mirrors spec.md §4.C: "empty relay set or
// total failure yields an empty list, not an error").
func NewRelayPool(ctx context.Context, urls []string) *RelayPool {
	p := &RelayPool{
		urls:   urls,
		relays: make(map[string]*nostr.Relay, len(urls)),
	}

	for _, url := range urls {
		connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
		relay, err := nostr.RelayConnect(connectCtx, url, nostr.RelayOptions{})
		cancel()
		if err != nil {
			log.Printf("[nsyte/relay] connect to %s failed: %v", url, err)
			continue
		}
		p.relays[url] = relay
	}

	return p
}

// URLs returns every configured relay URL, connected or not.
func (p *RelayPool) URLs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.urls))
	copy(out, p.urls)
	return out
}

// Connected reports how many configured relays currently hold a live connection.
func (p *RelayPool) Connected() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, r := range p.relays {
		if r.IsConnected() {
			n++
		}
	}
	return n
}

// ConnectedURLs reports which configured URLs currently hold a live connection.
func (p *RelayPool) ConnectedURLs() map[string]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]bool, len(p.urls))
	for _, url := range p.urls {
		r, ok := p.relays[url]
		out[url] = ok && r.IsConnected()
	}
	return out
}

// PublishOutcome is one relay's response to a single publish attempt.
type PublishOutcome struct {
	Relay     string
	Accepted  bool
	Reason    string // populated when the relay returned ok=false
	Err       error  // populated on connection/timeout failure
}

// PublishToAll sends event to every connected relay concurrently, each bounded by
// DefaultPublishTimeout with one retry, folding results into accepted /
// rejected-with-reason / connection-error per spec.md §4.F. The event is considered
// published when at least one PublishOutcome has Accepted=true; the caller gets the
// full per-relay map regardless, for reporting.
func (p *RelayPool) PublishToAll(ctx context.Context, event nostr.Event) []PublishOutcome {
	p.mu.RLock()
	relays := make(map[string]*nostr.Relay, len(p.relays))
	for url, r := range p.relays {
		relays[url] = r
	}
	p.mu.RUnlock()

	outcomes := make([]PublishOutcome, len(relays))
	var wg sync.WaitGroup
	i := 0
	for url, relay := range relays {
		wg.Add(1)
		idx := i
		i++
		go func(url string, relay *nostr.Relay) {
			defer wg.Done()
			outcomes[idx] = publishOne(ctx, url, relay, event)
		}(url, relay)
	}
	wg.Wait()

	return outcomes
}

// Publish broadcasts event to every relay and returns an error only if none of them
// accepted it, for callers (like the Spool drain loop) that just want a pass/fail
// result rather than the full per-relay breakdown.
func (p *RelayPool) Publish(ctx context.Context, event nostr.Event) error {
	outcomes := p.PublishToAll(ctx, event)
	for _, o := range outcomes {
		if o.Accepted {
			return nil
		}
	}
	if len(outcomes) == 0 {
		return fmt.Errorf("no relays to publish to")
	}
	return fmt.Errorf("rejected by all %d relays", len(outcomes))
}

func publishOne(ctx context.Context, url string, relay *nostr.Relay, event nostr.Event) PublishOutcome {
	ctx, cancelHard := context.WithTimeout(ctx, DefaultPublishHardTimeout)
	defer cancelHard()

	var lastErr error
	for attempt := 0; attempt <= PublishRetries; attempt++ {
		pubCtx, cancel := context.WithTimeout(ctx, DefaultPublishTimeout)
		err := relay.Publish(pubCtx, event)
		cancel()
		if err == nil {
			return PublishOutcome{Relay: url, Accepted: true}
		}
		lastErr = err
		if rejection, ok := asRejection(err); ok {
			return PublishOutcome{Relay: url, Accepted: false, Reason: rejection}
		}
	}
	return PublishOutcome{Relay: url, Accepted: false, Err: fmt.Errorf("publishing to %s: %w", url, lastErr)}
}

// asRejection extracts a relay's negative-ack reason from a Publish error, if the
// underlying library surfaces ok=false distinctly from a connection failure. Relay
// implementations vary in how explicit this is, so failing the type assertion simply
// means the error is treated as a connection error rather than a rejection.
func asRejection(err error) (string, bool) {
	type reasoner interface{ Reason() string }
	if r, ok := err.(reasoner); ok {
		return r.Reason(), true
	}
	return "", false
}

// Subscribe opens one subscription per relay for the given filter. Callers are
// responsible for draining and closing the returned subscriptions.
func (p *RelayPool) Subscribe(ctx context.Context, filter nostr.Filter) map[string]*nostr.Subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()

	subs := make(map[string]*nostr.Subscription, len(p.relays))
	for url, relay := range p.relays {
		sub, err := relay.Subscribe(ctx, filter, nostr.SubscriptionOptions{})
		if err != nil {
			log.Printf("[nsyte/relay] subscribe on %s failed: %v", url, err)
			continue
		}
		subs[url] = sub
	}
	return subs
}

// Close disconnects from every relay.
func (p *RelayPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, r := range p.relays {
		r.Close()
	}
	p.relays = nil
}
