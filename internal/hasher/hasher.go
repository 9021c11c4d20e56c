// Package hasher computes the content digests nsyte uses for both Blossom addressing
// and manifest comparison (spec.md §4.B). Both use the same SHA-256 hex digest, so one
// hash per file serves both. Hashing streams the file and keeps no bytes; the uploader
// reads the file from disk again when it transfers it.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/sandwichfarm/nsyte/internal/scanner"
)

// Digest is a hashed local file: its scanner.File plus the resulting sha256 hex
// digest and the byte count actually read.
type Digest struct {
	scanner.File
	SHA256     string
	ReadBytes  int64
}

// ReadError wraps a digest failure with the offending path, so callers can report
// which file could not be read without losing the underlying OS error.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Hash computes the sha256 digest of one file, failing with a *ReadError on any I/O
// problem so the caller can decide whether to abort the run or skip the file.
func Hash(f scanner.File) (Digest, error) {
	file, err := os.Open(f.AbsPath)
	if err != nil {
		return Digest{}, &ReadError{Path: f.Path, Err: err}
	}
	defer file.Close()

	h := sha256.New()
	n, err := io.Copy(h, file)
	if err != nil {
		return Digest{}, &ReadError{Path: f.Path, Err: err}
	}

	return Digest{
		File:      f,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		ReadBytes: n,
	}, nil
}

// HashAll hashes every file in files, stopping at the first ReadError. Order of the
// returned digests matches the input order.
func HashAll(files []scanner.File) ([]Digest, error) {
	digests := make([]Digest, 0, len(files))
	for _, f := range files {
		d, err := Hash(f)
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, nil
}
