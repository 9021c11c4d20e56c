package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandwichfarm/nsyte/internal/scanner"
)

func TestHashComputesExpectedDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	content := []byte("hello nsyte")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := sha256.Sum256(content)
	wantHex := hex.EncodeToString(want[:])

	d, err := Hash(scanner.File{Path: "/file.txt", AbsPath: path, Size: int64(len(content))})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if d.SHA256 != wantHex {
		t.Errorf("got digest %q, want %q", d.SHA256, wantHex)
	}
	if d.ReadBytes != int64(len(content)) {
		t.Errorf("got ReadBytes %d, want %d", d.ReadBytes, len(content))
	}
}

func TestHashMissingFileReturnsReadError(t *testing.T) {
	_, err := Hash(scanner.File{Path: "/missing.txt", AbsPath: "/no/such/path"})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var readErr *ReadError
	if !asReadError(err, &readErr) {
		t.Fatalf("expected *ReadError, got %T: %v", err, err)
	}
	if readErr.Path != "/missing.txt" {
		t.Errorf("expected Path /missing.txt, got %q", readErr.Path)
	}
}

func asReadError(err error, target **ReadError) bool {
	re, ok := err.(*ReadError)
	if !ok {
		return false
	}
	*target = re
	return true
}

func TestHashAllStopsOnFirstError(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	if err := os.WriteFile(good, []byte("ok"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files := []scanner.File{
		{Path: "/good.txt", AbsPath: good},
		{Path: "/missing.txt", AbsPath: filepath.Join(dir, "missing.txt")},
	}

	if _, err := HashAll(files); err == nil {
		t.Fatal("expected HashAll to fail on the missing file")
	}
}
