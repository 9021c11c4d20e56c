// Package blossom uploads and probes content-addressed blobs on Blossom servers
// (spec.md §4.E, §4.G), grounded in the same PUT /upload + HEAD /<sha256> protocol
// the teacher's BlobUploader speaks, but generalized to a bounded worker pool, mirror
// semantics across an arbitrary server set, and per-server circuit breaking.
package blossom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sandwichfarm/nsyte/internal/hasher"
)

// UploadConcurrency bounds how many files upload at once.
const UploadConcurrency = 4

// ServerFanout bounds how many servers one file uploads to concurrently.
const ServerFanout = 3

// MaxUploadRetries is the per-server retry budget for a single file.
const MaxUploadRetries = 2

// ServerResult is one server's outcome for one file upload.
type ServerResult struct {
	Server string
	OK     bool
	URL    string
	Err    error
}

// FileResult is the aggregated outcome of uploading one file to every configured
// server: per spec.md §4.E, a file "succeeds" when at least one server accepts it.
type FileResult struct {
	Digest  hasher.Digest
	Servers []ServerResult
	OK      bool
}

// Uploader uploads digested files to a fixed set of Blossom servers with bounded
// concurrency both across files and across servers per file.
type Uploader struct {
	servers     []string
	concurrency int
	httpClient  *http.Client
}

// NewUploader builds an Uploader targeting servers, with UploadConcurrency files in
// flight at once.
func NewUploader(servers []string) *Uploader {
	return NewUploaderWithConcurrency(servers, UploadConcurrency)
}

// NewUploaderWithConcurrency builds an Uploader with an explicit file concurrency,
// wired from config.ProjectConfig.Concurrency / --concurrency. concurrency <= 0 falls
// back to UploadConcurrency.
func NewUploaderWithConcurrency(servers []string, concurrency int) *Uploader {
	if concurrency <= 0 {
		concurrency = UploadConcurrency
	}
	return &Uploader{
		servers:     servers,
		concurrency: concurrency,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

// UploadAll uploads every digest concurrently (bounded by the Uploader's configured
// concurrency) and returns one FileResult per input, in input order. When onResult is
// non-nil, it is invoked for each file the moment that file's upload completes, rather
// than after the whole batch finishes, so a caller can pipeline per-file work (like
// publishing the manifest event) instead of waiting on every sibling upload first.
// onResult may be called concurrently from multiple goroutines.
func (u *Uploader) UploadAll(ctx context.Context, digests []hasher.Digest, onResult func(FileResult)) ([]FileResult, error) {
	results := make([]FileResult, len(digests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for i, d := range digests {
		i, d := i, d
		g.Go(func() error {
			r := u.uploadOne(gctx, d)
			results[i] = r
			if onResult != nil {
				onResult(r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (u *Uploader) uploadOne(ctx context.Context, d hasher.Digest) FileResult {
	data, err := os.ReadFile(d.AbsPath)
	if err != nil {
		return FileResult{Digest: d, OK: false, Servers: []ServerResult{{Err: err}}}
	}

	results := make([]ServerResult, len(u.servers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ServerFanout)
	for i, server := range u.servers {
		i, server := i, server
		g.Go(func() error {
			results[i] = u.uploadToServer(gctx, server, data, d)
			return nil
		})
	}
	_ = g.Wait()

	anyOK := false
	for _, r := range results {
		if r.OK {
			anyOK = true
			break
		}
	}
	return FileResult{Digest: d, Servers: results, OK: anyOK}
}

func (u *Uploader) uploadToServer(ctx context.Context, server string, data []byte, d hasher.Digest) ServerResult {
	var result ServerResult

	op := func() error {
		url := server + "/upload"
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", d.ContentType)
		req.Header.Set("X-SHA-256", d.SHA256)

		resp, err := u.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("uploading to %s: %w", server, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(fmt.Errorf("upload to %s rejected %d: %s", server, resp.StatusCode, body))
			}
			return fmt.Errorf("upload to %s failed %d: %s", server, resp.StatusCode, body)
		}

		result = ServerResult{Server: server, OK: true, URL: server + "/" + d.SHA256}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(1*time.Second),
		backoff.WithMultiplier(2),
		backoff.WithMaxElapsedTime(0),
	), MaxUploadRetries)

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return ServerResult{Server: server, OK: false, Err: err}
	}
	return result
}
