package nostr

import (
	"context"

	"fiatjaf.com/nostr"
)

// SerialSigner wraps a Signer whose concrete implementation is not declared safe for
// concurrent use (true of both LocalSigner and BunkerSigner: a bunker round-trip is a
// single logical request/response pair over one connection) and serializes all Sign
// calls through a single-goroutine queue. The Publisher (and the deletion
// Orchestrator through it) signs through one SerialSigner per run so that concurrent
// publish workers never race a bunker connection or a key held in memory.
type SerialSigner struct {
	inner Signer
	jobs  chan signJob
	done  chan struct{}
}

type signJob struct {
	ctx    context.Context
	event  *nostr.Event
	result chan error
}

// NewSerialSigner starts the background goroutine that drains the sign queue.
func NewSerialSigner(inner Signer) *SerialSigner {
	s := &SerialSigner{
		inner: inner,
		jobs:  make(chan signJob),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *SerialSigner) loop() {
	defer close(s.done)
	for job := range s.jobs {
		job.result <- s.inner.Sign(job.ctx, job.event)
	}
}

// Sign enqueues a sign request and blocks until it completes or ctx is cancelled.
func (s *SerialSigner) Sign(ctx context.Context, event *nostr.Event) error {
	result := make(chan error, 1)
	select {
	case s.jobs <- signJob{ctx: ctx, event: event, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SerialSigner) PublicKey() string { return s.inner.PublicKey() }

// Close stops accepting new sign requests, waits for the queue to drain, then closes
// the inner signer.
func (s *SerialSigner) Close() error {
	close(s.jobs)
	<-s.done
	return s.inner.Close()
}
