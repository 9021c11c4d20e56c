// Package publish signs and broadcasts the five event shapes nsyte emits: manifest
// entries, delete requests, and the optional profile/relay-list/server-list metadata
// events (spec.md §4.F).
package publish

import (
	"context"
	"fmt"
	"sync"

	fnostr "fiatjaf.com/nostr"
	"golang.org/x/sync/errgroup"

	"github.com/sandwichfarm/nsyte/internal/hasher"
	"github.com/sandwichfarm/nsyte/internal/nostr"
)

// ManifestPublishFanout bounds how many manifest events are signed and broadcast
// concurrently when publishing a batch.
const ManifestPublishFanout = 4

// EventOutcome is the per-relay-accounted result of publishing one signed event.
type EventOutcome struct {
	Event    *fnostr.Event
	Outcomes []nostr.PublishOutcome
	OK       bool // at least one relay accepted
}

// Publisher signs and broadcasts events through a shared signer and relay pool. The
// signer is expected to already serialize concurrent Sign calls (see
// nostr.SerialSigner); Publisher does not add its own locking around signing. When a
// spool is set, an event accepted by zero relays is spooled for a later `nsyte
// drain` rather than silently dropped.
type Publisher struct {
	signer nostr.Signer
	pool   *nostr.RelayPool
	spool  *nostr.Spool
}

// NewPublisher builds a Publisher over an already-connected pool and a signer.
func NewPublisher(signer nostr.Signer, pool *nostr.RelayPool) *Publisher {
	return &Publisher{signer: signer, pool: pool}
}

// WithSpool attaches a fallback spool for events that no relay accepts.
func (p *Publisher) WithSpool(spool *nostr.Spool) *Publisher {
	p.spool = spool
	return p
}

// PublishManifest signs and broadcasts a single kind-34128 event for d. Callers that
// drive uploads incrementally (one file finishes, then the next) should call this
// directly as each upload is accepted rather than batching through PublishManifests,
// so a slow file further down the queue never delays an already-uploaded one's
// manifest event.
func (p *Publisher) PublishManifest(ctx context.Context, d hasher.Digest) (EventOutcome, error) {
	evt := nostr.NewManifestEvent(d.Path, d.SHA256)
	outcome, err := p.signAndPublish(ctx, evt)
	if err != nil {
		return outcome, fmt.Errorf("publishing manifest for %s: %w", d.Path, err)
	}
	return outcome, nil
}

// PublishManifests signs and broadcasts one kind-34128 event per digest, fanning out
// up to ManifestPublishFanout at a time. Unlike a sequential loop, one digest's
// publish failure doesn't hold up or abort the rest of the batch; the returned error
// is the first one encountered, but every digest is still attempted. Order of the
// returned outcomes matches the input order.
func (p *Publisher) PublishManifests(ctx context.Context, digests []hasher.Digest) ([]EventOutcome, error) {
	outcomes := make([]EventOutcome, len(digests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ManifestPublishFanout)

	var mu sync.Mutex
	var firstErr error
	for i, d := range digests {
		i, d := i, d
		g.Go(func() error {
			outcome, err := p.PublishManifest(gctx, d)
			outcomes[i] = outcome
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, firstErr
}

// PublishDelete signs and broadcasts a single kind-5 deletion request referencing
// eventIDs.
func (p *Publisher) PublishDelete(ctx context.Context, eventIDs []string, note string) (EventOutcome, error) {
	evt := nostr.NewDeleteEvent(eventIDs, note)
	return p.signAndPublish(ctx, evt)
}

// PublishProfile signs and broadcasts a kind-0 profile event from a raw JSON payload.
func (p *Publisher) PublishProfile(ctx context.Context, profileJSON string) (EventOutcome, error) {
	evt := nostr.NewProfileEvent(profileJSON)
	return p.signAndPublish(ctx, evt)
}

// PublishRelayList signs and broadcasts a kind-10002 relay list event.
func (p *Publisher) PublishRelayList(ctx context.Context, relays []nostr.RelayListEntry) (EventOutcome, error) {
	evt := nostr.NewRelayListEvent(relays)
	return p.signAndPublish(ctx, evt)
}

// PublishServerList signs and broadcasts a kind-10063 Blossom server list event.
func (p *Publisher) PublishServerList(ctx context.Context, servers []string) (EventOutcome, error) {
	evt := nostr.NewServerListEvent(servers)
	return p.signAndPublish(ctx, evt)
}

func (p *Publisher) signAndPublish(ctx context.Context, evt *fnostr.Event) (EventOutcome, error) {
	if err := p.signer.Sign(ctx, evt); err != nil {
		return EventOutcome{}, fmt.Errorf("signing event kind %d: %w", evt.Kind, err)
	}

	outcomes := p.pool.PublishToAll(ctx, *evt)
	ok := false
	for _, o := range outcomes {
		if o.Accepted {
			ok = true
			break
		}
	}

	if !ok && p.spool != nil {
		if spoolErr := p.spool.Enqueue(evt); spoolErr != nil {
			return EventOutcome{Event: evt, Outcomes: outcomes, OK: false}, fmt.Errorf("spooling unpublished event: %w", spoolErr)
		}
	}

	return EventOutcome{Event: evt, Outcomes: outcomes, OK: ok}, nil
}
