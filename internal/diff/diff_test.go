package diff

import (
	"testing"

	"github.com/sandwichfarm/nsyte/internal/hasher"
	"github.com/sandwichfarm/nsyte/internal/manifest"
	"github.com/sandwichfarm/nsyte/internal/scanner"
)

func digest(path, sha string) hasher.Digest {
	return hasher.Digest{File: scanner.File{Path: path}, SHA256: sha}
}

func entry(path, digest string) manifest.Entry {
	return manifest.Entry{Path: path, Digest: digest}
}

func TestClassifyNewFileGoesToTransfer(t *testing.T) {
	local := []hasher.Digest{digest("/new.html", "aaa")}
	plan := Classify(local, nil, false)

	if len(plan.ToTransfer) != 1 || plan.ToTransfer[0].Path != "/new.html" {
		t.Fatalf("expected /new.html in ToTransfer, got %+v", plan.ToTransfer)
	}
	if len(plan.Unchanged) != 0 || len(plan.ToDelete) != 0 {
		t.Fatalf("expected nothing else classified, got %+v", plan)
	}
}

func TestClassifyMatchingDigestIsUnchanged(t *testing.T) {
	local := []hasher.Digest{digest("/index.html", "aaa")}
	remote := []manifest.Entry{entry("/index.html", "aaa")}

	plan := Classify(local, remote, false)

	if len(plan.Unchanged) != 1 {
		t.Fatalf("expected 1 unchanged file, got %+v", plan.Unchanged)
	}
	if len(plan.ToTransfer) != 0 {
		t.Fatalf("expected no transfers, got %+v", plan.ToTransfer)
	}
}

func TestClassifyChangedDigestGoesToTransfer(t *testing.T) {
	local := []hasher.Digest{digest("/index.html", "bbb")}
	remote := []manifest.Entry{entry("/index.html", "aaa")}

	plan := Classify(local, remote, false)

	if len(plan.ToTransfer) != 1 {
		t.Fatalf("expected changed file to transfer, got %+v", plan)
	}
}

func TestClassifyMissingLocalGoesToDelete(t *testing.T) {
	remote := []manifest.Entry{entry("/old.html", "aaa")}

	plan := Classify(nil, remote, false)

	if len(plan.ToDelete) != 1 || plan.ToDelete[0].Path != "/old.html" {
		t.Fatalf("expected /old.html in ToDelete, got %+v", plan.ToDelete)
	}
}

func TestClassifyForceMovesUnchangedToTransfer(t *testing.T) {
	local := []hasher.Digest{digest("/index.html", "aaa")}
	remote := []manifest.Entry{entry("/index.html", "aaa")}

	plan := Classify(local, remote, true)

	if len(plan.ToTransfer) != 1 {
		t.Fatalf("expected force mode to move the matching file to ToTransfer, got %+v", plan)
	}
	if len(plan.Unchanged) != 0 {
		t.Fatalf("expected no unchanged files under force, got %+v", plan.Unchanged)
	}
}

func TestClassifyIsCaseInsensitiveOnPath(t *testing.T) {
	local := []hasher.Digest{digest("/Index.HTML", "aaa")}
	remote := []manifest.Entry{entry("/index.html", "aaa")}

	plan := Classify(local, remote, false)

	if len(plan.Unchanged) != 1 {
		t.Fatalf("expected case-insensitive path match to count as unchanged, got %+v", plan)
	}
}

func TestClassifyCollapsesLeadingSlashes(t *testing.T) {
	local := []hasher.Digest{digest("/index.html", "aaa")}
	remote := []manifest.Entry{entry("//index.html", "aaa")}

	plan := Classify(local, remote, false)

	if len(plan.Unchanged) != 1 {
		t.Fatalf("expected //index.html to normalize-match /index.html, got %+v", plan)
	}
	if len(plan.ToDelete) != 0 {
		t.Fatalf("expected no stale delete entry, got %+v", plan.ToDelete)
	}
}

func TestClassifyPartitionsAreDisjoint(t *testing.T) {
	local := []hasher.Digest{
		digest("/new.html", "aaa"),
		digest("/same.html", "bbb"),
		digest("/changed.html", "ccc"),
	}
	remote := []manifest.Entry{
		entry("/same.html", "bbb"),
		entry("/changed.html", "zzz"),
		entry("/gone.html", "ddd"),
	}

	plan := Classify(local, remote, false)

	seen := map[string]int{}
	for _, d := range plan.ToTransfer {
		seen[d.Path]++
	}
	for _, d := range plan.Unchanged {
		seen[d.Path]++
	}
	for _, e := range plan.ToDelete {
		seen[e.Path]++
	}
	for path, count := range seen {
		if count != 1 {
			t.Errorf("path %q appeared in %d partitions, want exactly 1", path, count)
		}
	}
	if len(plan.ToTransfer) != 2 || len(plan.Unchanged) != 1 || len(plan.ToDelete) != 1 {
		t.Fatalf("unexpected partition sizes: %+v", plan)
	}
}
