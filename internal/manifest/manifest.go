// Package manifest fetches and merges the remote file manifest for a site: the set of
// kind-34128 events published across the configured relay set, deduplicated by path
// keeping the newest created_at, per spec.md §4.C.
package manifest

import (
	"context"
	"log"
	"sort"
	"time"

	fnostr "fiatjaf.com/nostr"

	"github.com/sandwichfarm/nsyte/internal/nostr"
)

// SoftTimeout is the per-relay inactivity timeout: a relay that has gone this long
// without sending a new event or EOSE is considered drained.
const SoftTimeout = 8 * time.Second

// HardTimeout is the absolute ceiling on one relay's subscription lifetime, regardless
// of activity.
const HardTimeout = 10 * time.Second

// Entry is one deduplicated remote file record.
type Entry struct {
	Path      string
	Digest    string
	EventID   string
	CreatedAt int64
	Relays    []string // every relay that served the winning event, for delete targeting
}

// Fetch queries every relay in pool for the site owner's kind-34128 events and returns
// the deduplicated-by-path result. A relay that errors, times out, or returns nothing
// contributes no entries; an empty or fully-failed relay set yields an empty manifest,
// not an error (spec.md §4.C).
func Fetch(ctx context.Context, pool *nostr.RelayPool, pubkey fnostr.PubKey) []Entry {
	filter := fnostr.Filter{
		Kinds:   []fnostr.Kind{nostr.NsiteKind},
		Authors: []fnostr.PubKey{pubkey},
	}

	subs := pool.Subscribe(ctx, filter)
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	results := make(chan received_)
	done := make(chan struct{})
	var pending int
	for range subs {
		pending++
	}
	if pending == 0 {
		return nil
	}

	for url, sub := range subs {
		go drainSubscription(ctx, url, sub, results, done)
	}

	merger := newMerger()
	finished := 0
	for finished < pending {
		select {
		case r := <-results:
			merger.add(r.relay, r.event)
		case <-done:
			finished++
		case <-ctx.Done():
			finished = pending
		}
	}

	return merger.entries()
}

// merger deduplicates events by path, keeping the newest created_at. When two events
// share both a path and a created_at, the lexicographically smaller event id wins and
// the loser's relay is still credited to the winning Entry, since it did serve a live
// copy of that path.
type merger struct {
	byPath map[string]*Entry
}

func newMerger() *merger {
	return &merger{byPath: make(map[string]*Entry)}
}

func (m *merger) add(relay string, evt *fnostr.Event) {
	path := nostr.PathFromTags(evt.Tags)
	if path == "" {
		return
	}
	digest := nostr.DigestFromTags(evt.Tags)
	createdAt := int64(evt.CreatedAt)
	id := nostr.IDToString(evt.ID)

	existing, ok := m.byPath[path]
	switch {
	case !ok:
		m.byPath[path] = &Entry{Path: path, Digest: digest, EventID: id, CreatedAt: createdAt, Relays: []string{relay}}
	case createdAt > existing.CreatedAt:
		m.byPath[path] = &Entry{Path: path, Digest: digest, EventID: id, CreatedAt: createdAt, Relays: []string{relay}}
	case createdAt == existing.CreatedAt && id == existing.EventID:
		existing.Relays = appendIfMissing(existing.Relays, relay)
	case createdAt == existing.CreatedAt && id != existing.EventID:
		// Genuine tie between two different events (e.g. a retried publish within the
		// same second). Keep the lexicographically smaller event id so every relay
		// converges on the same winner independently, and credit the loser's relay too
		// since it did serve a live copy of this path.
		relays := appendIfMissing(existing.Relays, relay)
		if id < existing.EventID {
			m.byPath[path] = &Entry{Path: path, Digest: digest, EventID: id, CreatedAt: createdAt, Relays: relays}
		} else {
			existing.Relays = relays
		}
	}
}

func (m *merger) entries() []Entry {
	out := make([]Entry, 0, len(m.byPath))
	for _, e := range m.byPath {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func drainSubscription(ctx context.Context, url string, sub *fnostr.Subscription, results chan<- received_, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	hardDeadline := time.NewTimer(HardTimeout)
	defer hardDeadline.Stop()
	softTimer := time.NewTimer(SoftTimeout)
	defer softTimer.Stop()

	for {
		select {
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			if !softTimer.Stop() {
				<-softTimer.C
			}
			softTimer.Reset(SoftTimeout)
			select {
			case results <- received_{relay: url, event: evt}:
			case <-ctx.Done():
				return
			}
		case <-sub.EndOfStoredEvents:
			return
		case <-softTimer.C:
			log.Printf("[nsyte/manifest] relay %s idle past soft timeout, closing", url)
			return
		case <-hardDeadline.C:
			log.Printf("[nsyte/manifest] relay %s hit hard timeout, closing", url)
			return
		case <-ctx.Done():
			return
		}
	}
}

// received_ pairs a relay URL with one event it served, so the merge loop in Fetch
// knows which relay to credit when recording Entry.Relays.
type received_ struct {
	relay string
	event *fnostr.Event
}

func appendIfMissing(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
