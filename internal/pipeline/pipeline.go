// Package pipeline drives the sync core of the run state machine described in spec.md
// §4.J: take the project lock, scan and hash local files, fetch the remote manifest,
// diff, transfer and (with purge) delete in parallel, then report. Resolving config,
// creating the signer and publishing optional metadata are done by the caller
// (cmd/nsyte's run command).
package pipeline

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	fnostr "fiatjaf.com/nostr"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sandwichfarm/nsyte/internal/blossom"
	"github.com/sandwichfarm/nsyte/internal/config"
	"github.com/sandwichfarm/nsyte/internal/deletion"
	"github.com/sandwichfarm/nsyte/internal/diff"
	"github.com/sandwichfarm/nsyte/internal/hasher"
	"github.com/sandwichfarm/nsyte/internal/manifest"
	"github.com/sandwichfarm/nsyte/internal/nostr"
	"github.com/sandwichfarm/nsyte/internal/progress"
	"github.com/sandwichfarm/nsyte/internal/publish"
	"github.com/sandwichfarm/nsyte/internal/scanner"
)

// LockFileName is the advisory lock nsyte takes on the project root for the
// duration of a run, preventing two concurrent syncs of the same site.
const LockFileName = ".nsyte/run.lock"

// FallbackPath is the fixed manifest path a --fallback file is published under, served
// by gateways as the site's catch-all 404 document.
const FallbackPath = "/404.html"

// Options configures one Run.
type Options struct {
	ProjectRoot string
	Force       bool
	Purge       bool
	DryRun      bool
	Signer      nostr.Signer
	Ignore      scanner.Matcher
	Collector   *progress.Collector
	// Fallback is the absolute path to a local file to publish under FallbackPath, in
	// addition to whatever the scan of ProjectRoot finds. Empty disables it.
	Fallback string
}

// Report summarizes the outcome of a Run for the caller (CLI exit-code decision and
// end-of-run display).
type Report struct {
	RunID      string
	Scanned    int
	Uploaded   int
	UploadFail int
	Published  int
	Deleted    int
	Unchanged  int
	Err        error
}

// ExitCode maps a Report to the process exit code: 1 when the run failed with an error
// or any file upload failed, 0 otherwise. Manifest publish failures and incomplete
// deletions do not change the exit code.
func (r Report) ExitCode() int {
	if r.Err != nil || r.UploadFail > 0 {
		return 1
	}
	return 0
}

// Run executes one full sync pass.
func Run(ctx context.Context, opts Options, cfg *config.ProjectConfig) Report {
	lockPath := filepath.Join(opts.ProjectRoot, LockFileName)
	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil || !locked {
		return Report{Err: fmt.Errorf("another nsyte run holds the lock on %s", opts.ProjectRoot)}
	}
	defer fl.Unlock()

	pubkey := resolvePubkey(opts.Signer)

	runID := uuid.NewString()
	report := Report{RunID: runID}
	collector := opts.Collector

	log.Printf("[nsyte/pipeline] run %s starting for %s", runID, opts.ProjectRoot)
	collector.Report(progress.Message{Kind: progress.KindInfo, Category: progress.CategoryRun, Target: "scan", Content: "scanning local files", OK: true})
	scanResult, err := scanner.Scan(opts.ProjectRoot, opts.Ignore)
	if err != nil {
		report.Err = fmt.Errorf("scanning local files: %w", err)
		return report
	}

	if opts.Fallback != "" {
		f, err := fallbackFile(opts.Fallback)
		if err != nil {
			report.Err = fmt.Errorf("reading fallback file: %w", err)
			return report
		}
		scanResult.Included = append(scanResult.Included, f)
	}

	report.Scanned = len(scanResult.Included)

	digests, err := hasher.HashAll(scanResult.Included)
	if err != nil {
		report.Err = fmt.Errorf("hashing local files: %w", err)
		return report
	}

	pool := nostr.NewRelayPool(ctx, cfg.Relays)
	defer pool.Close()

	collector.Report(progress.Message{Kind: progress.KindInfo, Category: progress.CategoryRun, Target: "fetch", Content: "fetching remote manifest", OK: true})
	remote := manifest.Fetch(ctx, pool, pubkey)

	plan := diff.Classify(digests, remote, opts.Force)
	report.Unchanged = len(plan.Unchanged)

	if !opts.Purge {
		plan.ToDelete = nil
	}

	if opts.DryRun {
		log.Printf("[nsyte/pipeline] dry run: %d to transfer, %d unchanged, %d to delete",
			len(plan.ToTransfer), len(plan.Unchanged), len(plan.ToDelete))
		return report
	}

	publisher := publish.NewPublisher(opts.Signer, pool).WithSpool(nostr.NewSpool(opts.ProjectRoot))

	var uploadReport uploadSummary
	var published int32
	var deleteTargets []deletion.Target

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		uploadReport = runUploads(gctx, cfg.Servers, cfg.Concurrency, plan.ToTransfer, publisher, &published, collector)
		return nil
	})
	if len(plan.ToDelete) > 0 {
		g.Go(func() error {
			orchestrator := deletion.NewOrchestrator(publisher, pool, pubkey)
			targets, err := orchestrator.Delete(gctx, plan.ToDelete, cfg.Servers, "removed by nsyte sync")
			deleteTargets = targets
			for _, t := range targets {
				kind := progress.KindDelete
				ok := true
				if t.Status == deletion.StatusNotDeleted || t.Status == deletion.StatusPartial {
					kind = progress.KindError
					ok = false
				}
				collector.Report(progress.Message{
					Kind: kind, Category: progress.CategoryFile, Target: t.Entry.Digest,
					Content: fmt.Sprintf("%s: %s", t.Entry.Path, t.Status), OK: ok,
				})
			}
			return err
		})
	}
	if err := g.Wait(); err != nil && report.Err == nil {
		report.Err = fmt.Errorf("sync: %w", err)
	}

	report.Uploaded = uploadReport.uploaded
	report.UploadFail = uploadReport.failed
	report.Published = int(atomic.LoadInt32(&published))
	for _, t := range deleteTargets {
		if t.Status == deletion.StatusVerified || t.Status == deletion.StatusDeleted {
			report.Deleted++
		}
	}

	return report
}

type uploadSummary struct {
	uploaded int
	failed   int
}

// runUploads drives the upload batch and, per spec.md §4.E, publishes each file's
// manifest event as soon as that file's own upload is accepted rather than waiting for
// the whole batch: a slow file elsewhere in the queue never delays one that already
// succeeded.
func runUploads(ctx context.Context, servers []string, concurrency int, toTransfer []hasher.Digest, publisher *publish.Publisher, published *int32, collector *progress.Collector) uploadSummary {
	if len(toTransfer) == 0 {
		return uploadSummary{}
	}

	var mu sync.Mutex
	summary := uploadSummary{}

	onResult := func(r blossom.FileResult) {
		mu.Lock()
		if r.OK {
			summary.uploaded++
		} else {
			summary.failed++
		}
		mu.Unlock()

		for _, sr := range r.Servers {
			if sr.Server == "" {
				continue
			}
			content := "accepted"
			if !sr.OK {
				content = "rejected"
				if sr.Err != nil {
					content = sr.Err.Error()
				}
			}
			collector.Report(progress.Message{
				Kind: serverResultKind(sr.OK), Category: progress.CategoryServer, Target: sr.Server,
				Content: content, OK: sr.OK,
			})
		}

		if !r.OK {
			collector.Report(progress.Message{
				Kind: progress.KindError, Category: progress.CategoryFile, Target: r.Digest.SHA256,
				Content: "failed to upload " + r.Digest.Path, OK: false,
			})
			return
		}
		collector.Report(progress.Message{
			Kind: progress.KindUpload, Category: progress.CategoryFile, Target: r.Digest.SHA256,
			Content: "uploaded " + r.Digest.Path, OK: true,
		})

		outcome, err := publisher.PublishManifest(ctx, r.Digest)
		if err != nil {
			collector.Report(progress.Message{
				Kind: progress.KindError, Category: progress.CategoryEvent, Target: r.Digest.SHA256,
				Content: "failed to publish " + r.Digest.Path, OK: false,
			})
			return
		}
		for _, po := range outcome.Outcomes {
			content := "accepted"
			if !po.Accepted {
				content = po.Reason
				if content == "" && po.Err != nil {
					content = po.Err.Error()
				}
			}
			collector.Report(progress.Message{
				Kind: relayResultKind(po.Accepted), Category: progress.CategoryRelay, Target: po.Relay,
				Content: content, OK: po.Accepted,
			})
		}

		eventID := nostr.IDToString(outcome.Event.ID)
		if outcome.OK {
			atomic.AddInt32(published, 1)
			collector.Report(progress.Message{
				Kind: progress.KindPublish, Category: progress.CategoryEvent, Target: eventID,
				Content: "published " + r.Digest.Path, OK: true,
			})
		} else {
			collector.Report(progress.Message{
				Kind: progress.KindError, Category: progress.CategoryEvent, Target: eventID,
				Content: "failed to publish " + r.Digest.Path, OK: false,
			})
		}
	}

	uploader := blossom.NewUploaderWithConcurrency(servers, concurrency)
	if _, err := uploader.UploadAll(ctx, toTransfer, onResult); err != nil {
		collector.Report(progress.Message{
			Kind: progress.KindError, Category: progress.CategoryRun, Target: "upload",
			Content: "upload batch failed: " + err.Error(), OK: false,
		})
		return uploadSummary{failed: len(toTransfer)}
	}

	mu.Lock()
	defer mu.Unlock()
	return summary
}

func serverResultKind(ok bool) progress.Kind {
	if ok {
		return progress.KindUpload
	}
	return progress.KindError
}

func relayResultKind(ok bool) progress.Kind {
	if ok {
		return progress.KindPublish
	}
	return progress.KindError
}

// fallbackFile builds the scanner.File for a --fallback upload, published at the fixed
// FallbackPath regardless of the source file's own name or extension.
func fallbackFile(absPath string) (scanner.File, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return scanner.File{}, err
	}
	return scanner.File{
		Path:        FallbackPath,
		AbsPath:     absPath,
		Size:        info.Size(),
		ContentType: fallbackContentType(absPath),
	}, nil
}

func fallbackContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// resolvePubkey derives the signer's nostr pubkey; separated out so callers that
// already hold a fnostr.PubKey (e.g. the `ls` read path) don't repeat the hex round
// trip the Run flow does internally.
func resolvePubkey(signer nostr.Signer) fnostr.PubKey {
	return nostr.PubKeyFromHex(signer.PublicKey())
}
