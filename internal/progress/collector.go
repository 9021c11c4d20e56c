// Package progress collects run events from every concurrent component into a single
// thread-safe sink and exposes a pull-based snapshot, decoupled from any particular
// renderer (spec.md §4.I). A terminal renderer, a headless log renderer, and OTel
// metrics counters all read the same Collector.
package progress

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// Kind identifies the stage a progress Message reports on.
type Kind string

const (
	KindScan    Kind = "scan"
	KindUpload  Kind = "upload"
	KindProbe   Kind = "probe"
	KindPublish Kind = "publish"
	KindDelete  Kind = "delete"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Category identifies what a Message is about, orthogonal to Kind: a run-level event
// carries no specific relay/server/file/event, the other four group the end-of-run
// summary printers.
type Category string

const (
	CategoryRun    Category = "run"
	CategoryRelay  Category = "relay"
	CategoryServer Category = "server"
	CategoryFile   Category = "file"
	CategoryEvent  Category = "event"
)

// Message is one reported event. (Kind, Category, Target) together identify the
// dedup slot: repeated messages about the same target collapse into one line with a
// count instead of spamming the log. OK distinguishes a positive outcome (accepted,
// uploaded, succeeded) from a negative one (rejected, failed) for the grouped
// summaries; it is meaningless on KindInfo messages.
type Message struct {
	Kind     Kind
	Category Category
	Target   string // a relay URL, server URL, file digest, or event id; free text for CategoryRun
	Content  string
	OK       bool
}

type entry struct {
	Message
	count int
}

// Collector accumulates Messages from any number of concurrent goroutines and serves
// a stable, ordered Snapshot to readers. It never blocks a producer on a consumer.
type Collector struct {
	mu      sync.Mutex
	order   []string // insertion order of keys, for stable snapshot ordering
	entries map[string]*entry

	counters struct {
		uploaded metric.Int64Counter
		failed   metric.Int64Counter
		deleted  metric.Int64Counter
	}
}

// NewCollector builds an empty Collector. meter may be nil, in which case no metrics
// are recorded (the OTel SDK is only wired up when an exporter endpoint is
// configured; see cmd/nsyte's telemetry setup).
func NewCollector(meter metric.Meter) *Collector {
	c := &Collector{entries: make(map[string]*entry)}
	if meter != nil {
		c.counters.uploaded, _ = meter.Int64Counter("nsyte.files.uploaded")
		c.counters.failed, _ = meter.Int64Counter("nsyte.files.failed")
		c.counters.deleted, _ = meter.Int64Counter("nsyte.files.deleted")
	}
	return c
}

// Report records msg, incrementing the repeat count if a message with the same Kind,
// Category, and Target was already reported.
func (c *Collector) Report(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := dedupKey(msg.Kind, msg.Category, msg.Target)
	if e, ok := c.entries[key]; ok {
		e.count++
		e.Content = msg.Content
		e.OK = msg.OK
		return
	}
	c.entries[key] = &entry{Message: msg, count: 1}
	c.order = append(c.order, key)

	c.recordMetric(msg.Kind)
}

func dedupKey(kind Kind, category Category, target string) string {
	return string(kind) + "\x00" + string(category) + "\x00" + target
}

func (c *Collector) recordMetric(kind Kind) {
	ctx := context.Background()
	switch kind {
	case KindUpload:
		if c.counters.uploaded != nil {
			c.counters.uploaded.Add(ctx, 1)
		}
	case KindError:
		if c.counters.failed != nil {
			c.counters.failed.Add(ctx, 1)
		}
	case KindDelete:
		if c.counters.deleted != nil {
			c.counters.deleted.Add(ctx, 1)
		}
	}
}

// Line is one rendered snapshot row: a message plus how many times it repeated.
type Line struct {
	Message
	Count int
}

// Snapshot returns every reported message in first-seen order, along with its
// current repeat count. Safe to call concurrently with Report.
func (c *Collector) Snapshot() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, 0, len(c.order))
	for _, key := range c.order {
		e := c.entries[key]
		lines = append(lines, Line{Message: e.Message, Count: e.count})
	}
	return lines
}

// ByKind filters Snapshot to messages of one Kind.
func (c *Collector) ByKind(kind Kind) []Line {
	var out []Line
	for _, l := range c.Snapshot() {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// ByCategory filters Snapshot to messages about one Category.
func (c *Collector) ByCategory(category Category) []Line {
	var out []Line
	for _, l := range c.Snapshot() {
		if l.Category == category {
			out = append(out, l)
		}
	}
	return out
}

// RelaySummary tallies a relay's accepted vs. rejected publish outcomes.
type RelaySummary struct {
	Relay    string
	Accepted int
	Rejected int
}

// ServerSummary tallies a Blossom server's successful vs. failed transfer outcomes.
type ServerSummary struct {
	Server  string
	Success int
	Failure int
}

// FileSummary tallies one file's successful vs. failed reported outcomes, keyed by
// the tail of its content digest.
type FileSummary struct {
	DigestTail string
	Success    int
	Failure    int
}

// EventSummary tallies one nostr event's successful vs. failed reported outcomes,
// keyed by the tail of its event id.
type EventSummary struct {
	IDTail  string
	Success int
	Failure int
}

// GroupByRelay summarizes CategoryRelay messages, one entry per relay, in first-seen
// order.
func (c *Collector) GroupByRelay() []RelaySummary {
	var order []string
	tallies := map[string]*RelaySummary{}
	for _, l := range c.ByCategory(CategoryRelay) {
		s, ok := tallies[l.Target]
		if !ok {
			s = &RelaySummary{Relay: l.Target}
			tallies[l.Target] = s
			order = append(order, l.Target)
		}
		if l.OK {
			s.Accepted += l.Count
		} else {
			s.Rejected += l.Count
		}
	}
	out := make([]RelaySummary, 0, len(order))
	for _, target := range order {
		out = append(out, *tallies[target])
	}
	return out
}

// GroupByServer summarizes CategoryServer messages, one entry per server, in
// first-seen order.
func (c *Collector) GroupByServer() []ServerSummary {
	var order []string
	tallies := map[string]*ServerSummary{}
	for _, l := range c.ByCategory(CategoryServer) {
		s, ok := tallies[l.Target]
		if !ok {
			s = &ServerSummary{Server: l.Target}
			tallies[l.Target] = s
			order = append(order, l.Target)
		}
		if l.OK {
			s.Success += l.Count
		} else {
			s.Failure += l.Count
		}
	}
	out := make([]ServerSummary, 0, len(order))
	for _, target := range order {
		out = append(out, *tallies[target])
	}
	return out
}

// GroupByFile summarizes CategoryFile messages, one entry per digest, in first-seen
// order.
func (c *Collector) GroupByFile() []FileSummary {
	var order []string
	tallies := map[string]*FileSummary{}
	for _, l := range c.ByCategory(CategoryFile) {
		s, ok := tallies[l.Target]
		if !ok {
			s = &FileSummary{DigestTail: tail(l.Target, 8)}
			tallies[l.Target] = s
			order = append(order, l.Target)
		}
		if l.OK {
			s.Success += l.Count
		} else {
			s.Failure += l.Count
		}
	}
	out := make([]FileSummary, 0, len(order))
	for _, target := range order {
		out = append(out, *tallies[target])
	}
	return out
}

// GroupByEvent summarizes CategoryEvent messages, one entry per event id, in
// first-seen order.
func (c *Collector) GroupByEvent() []EventSummary {
	var order []string
	tallies := map[string]*EventSummary{}
	for _, l := range c.ByCategory(CategoryEvent) {
		s, ok := tallies[l.Target]
		if !ok {
			s = &EventSummary{IDTail: tail(l.Target, 8)}
			tallies[l.Target] = s
			order = append(order, l.Target)
		}
		if l.OK {
			s.Success += l.Count
		} else {
			s.Failure += l.Count
		}
	}
	out := make([]EventSummary, 0, len(order))
	for _, target := range order {
		out = append(out, *tallies[target])
	}
	return out
}

// tail returns the last n characters of s, or s itself when it is shorter.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
