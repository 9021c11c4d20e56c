package blossom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandwichfarm/nsyte/internal/hasher"
	"github.com/sandwichfarm/nsyte/internal/scanner"
)

func TestUploadAllSucceedsWhenAnyServerAccepts(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"url":"` + r.Host + `/blob","sha256":"x"}`))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "file.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d, err := hasher.Hash(scanner.File{Path: "/file.html", AbsPath: path, ContentType: "text/html"})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	u := NewUploader([]string{good.URL, bad.URL})
	results, err := u.UploadAll(context.Background(), []hasher.Digest{d}, nil)
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].OK {
		t.Fatalf("expected file to succeed because at least one server accepted it: %+v", results[0])
	}
}

func TestUploadAllFailsWhenEveryServerRejects(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "file.html")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d, err := hasher.Hash(scanner.File{Path: "/file.html", AbsPath: path})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	u := NewUploader([]string{bad.URL})
	results, err := u.UploadAll(context.Background(), []hasher.Digest{d}, nil)
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	if results[0].OK {
		t.Fatal("expected failure when the only server rejects the upload")
	}
}
