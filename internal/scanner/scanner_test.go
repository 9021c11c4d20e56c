package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type prefixMatcher struct{ prefix string }

func (m prefixMatcher) Match(relPath string) bool {
	return strings.HasPrefix(relPath, m.prefix)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanIncludesAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "a.css"), "body{}")
	writeFile(t, filepath.Join(root, "sub", "c.js"), "console.log(1)")

	res, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Included) != 3 {
		t.Fatalf("expected 3 files, got %d", len(res.Included))
	}

	want := []string{"/a.css", "/b.html", "/sub/c.js"}
	for i, f := range res.Included {
		if f.Path != want[i] {
			t.Errorf("index %d: got %q, want %q", i, f.Path, want[i])
		}
	}
}

func TestScanAppliesIgnore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.html"), "keep")
	writeFile(t, filepath.Join(root, "drafts", "skip.html"), "skip")

	res, err := Scan(root, prefixMatcher{prefix: "/drafts/"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Included) != 1 || res.Included[0].Path != "/keep.html" {
		t.Fatalf("unexpected included set: %+v", res.Included)
	}
	if len(res.Ignored) != 1 || res.Ignored[0] != "/drafts/skip.html" {
		t.Fatalf("unexpected ignored set: %+v", res.Ignored)
	}
}

func TestScanSkipsDotGitAndDotNsyte(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")
	writeFile(t, filepath.Join(root, ".nsyte", "config.json"), "{}")
	writeFile(t, filepath.Join(root, "index.html"), "hi")

	res, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Included) != 1 || res.Included[0].Path != "/index.html" {
		t.Fatalf("expected only index.html, got %+v", res.Included)
	}
}

func TestContentTypeFallback(t *testing.T) {
	if got := contentType("/file.unknownext"); got != "application/octet-stream" {
		t.Errorf("expected octet-stream fallback, got %q", got)
	}
	if got := contentType("/style.css"); !strings.Contains(got, "css") {
		t.Errorf("expected css content type, got %q", got)
	}
}
