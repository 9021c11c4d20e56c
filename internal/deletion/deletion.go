// Package deletion implements the verified-delete protocol of spec.md §4.H: best
// effort blob deletion, a signed kind-5 event, a grace period, and a re-query that
// classifies each target as fully, partially, or not deleted.
package deletion

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	fnostr "fiatjaf.com/nostr"

	"github.com/sandwichfarm/nsyte/internal/manifest"
	"github.com/sandwichfarm/nsyte/internal/nostr"
	"github.com/sandwichfarm/nsyte/internal/publish"
)

// GracePeriod is how long the orchestrator waits after publishing the delete event
// before re-querying relays to check whether it stuck.
const GracePeriod = 3 * time.Second

// Status classifies how completely a deletion target was removed.
type Status string

const (
	StatusDeleting  Status = "deleting"
	StatusDeleted   Status = "deleted"   // delete event accepted by at least one relay
	StatusVerified  Status = "verified"  // re-query confirms the entry is gone everywhere
	StatusPartial   Status = "partial"   // still present on some but not all original relays
	StatusNotDeleted Status = "not_deleted"
)

// Target is one remote entry slated for deletion.
type Target struct {
	Entry  manifest.Entry
	Status Status
}

// Orchestrator runs the verified-delete protocol for a batch of manifest entries.
type Orchestrator struct {
	publisher  *publish.Publisher
	pool       *nostr.RelayPool
	pubkey     fnostr.PubKey
	httpClient *http.Client
}

// NewOrchestrator builds a deletion Orchestrator sharing the run's publisher and
// relay pool, scoped to pubkey so the re-query in verify only matches the site
// owner's own events.
func NewOrchestrator(publisher *publish.Publisher, pool *nostr.RelayPool, pubkey fnostr.PubKey) *Orchestrator {
	return &Orchestrator{
		publisher:  publisher,
		pool:       pool,
		pubkey:     pubkey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Delete removes targets' blobs from every Blossom server (best effort; a server
// refusing a delete is advisory and does not abort the protocol), publishes one
// kind-5 event referencing all of their manifest event ids, waits GracePeriod, then
// re-queries relays and classifies each target.
func (o *Orchestrator) Delete(ctx context.Context, entries []manifest.Entry, servers []string, note string) ([]Target, error) {
	targets := make([]Target, len(entries))
	for i, e := range entries {
		targets[i] = Target{Entry: e, Status: StatusDeleting}
	}

	for _, e := range entries {
		o.deleteBlobBestEffort(ctx, servers, e.Digest)
	}

	eventIDs := make([]string, len(entries))
	for i, e := range entries {
		eventIDs[i] = e.EventID
	}

	outcome, err := o.publisher.PublishDelete(ctx, eventIDs, note)
	if err != nil {
		return targets, fmt.Errorf("publishing delete event: %w", err)
	}
	if !outcome.OK {
		for i := range targets {
			targets[i].Status = StatusNotDeleted
		}
		return targets, nil
	}
	for i := range targets {
		targets[i].Status = StatusDeleted
	}

	select {
	case <-time.After(GracePeriod):
	case <-ctx.Done():
		return targets, ctx.Err()
	}

	return o.verify(ctx, targets)
}

func (o *Orchestrator) deleteBlobBestEffort(ctx context.Context, servers []string, sha256hex string) {
	for _, server := range servers {
		url := fmt.Sprintf("%s/%s", server, sha256hex)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(nil))
		if err != nil {
			continue
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
	}
}

// verify re-queries for each target's path and classifies based on whether the
// manifest still resolves to the deleted event id, and on how many of the target's
// original relays still serve it.
func (o *Orchestrator) verify(ctx context.Context, targets []Target) ([]Target, error) {
	for i, t := range targets {
		filter := fnostr.Filter{
			Kinds:   []fnostr.Kind{nostr.NsiteKind},
			Authors: []fnostr.PubKey{o.pubkey},
		}
		subs := o.pool.Subscribe(ctx, filter)

		stillPresentOn := 0
		for _, relayURL := range t.Entry.Relays {
			sub, ok := subs[relayURL]
			if !ok {
				continue
			}
			if sawLivePath(ctx, sub, t.Entry.Path, t.Entry.EventID) {
				stillPresentOn++
			}
		}
		for _, sub := range subs {
			sub.Close()
		}

		switch {
		case stillPresentOn == 0:
			targets[i].Status = StatusVerified
		case stillPresentOn < len(t.Entry.Relays):
			targets[i].Status = StatusPartial
		default:
			targets[i].Status = StatusNotDeleted
		}
	}
	return targets, nil
}

func sawLivePath(ctx context.Context, sub *fnostr.Subscription, path, eventID string) bool {
	timeout := time.NewTimer(2 * time.Second)
	defer timeout.Stop()
	for {
		select {
		case evt, ok := <-sub.Events:
			if !ok {
				return false
			}
			if nostr.PathFromTags(evt.Tags) == path && nostr.IDToString(evt.ID) == eventID {
				return true
			}
		case <-sub.EndOfStoredEvents:
			return false
		case <-timeout.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
