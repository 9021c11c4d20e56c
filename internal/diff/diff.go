// Package diff classifies local files against the remote manifest into three disjoint
// sets, per spec.md §4.D: files to transfer, files already in sync, and remote entries
// to delete because no local file claims their path anymore.
package diff

import (
	"sort"

	"golang.org/x/text/cases"

	"github.com/sandwichfarm/nsyte/internal/hasher"
	"github.com/sandwichfarm/nsyte/internal/manifest"
)

var fold = cases.Fold()

// normalize applies Unicode case folding so path comparison is not sensitive to case
// differences introduced by different filesystems or relays, and collapses consecutive
// leading slashes to one so a malformed remote `d` tag like "//index.html" still
// matches the local "/index.html" (spec.md §4.D).
func normalize(path string) string {
	return fold.String(collapseLeadingSlashes(path))
}

func collapseLeadingSlashes(path string) string {
	i := 0
	for i < len(path) && path[i] == '/' {
		i++
	}
	if i <= 1 {
		return path
	}
	return path[i-1:]
}

// Plan is the three-way classification result.
type Plan struct {
	ToTransfer []hasher.Digest
	Unchanged  []hasher.Digest
	ToDelete   []manifest.Entry
}

// Classify compares local against remote and produces a Plan. When force is true,
// every local file is moved into ToTransfer regardless of digest match, per spec.md
// §4.D's force-mode override; ToDelete is unaffected by force.
func Classify(local []hasher.Digest, remote []manifest.Entry, force bool) Plan {
	remoteByPath := make(map[string]manifest.Entry, len(remote))
	for _, r := range remote {
		remoteByPath[normalize(r.Path)] = r
	}

	localPaths := make(map[string]struct{}, len(local))

	var plan Plan
	for _, d := range local {
		key := normalize(d.Path)
		localPaths[key] = struct{}{}

		remoteEntry, ok := remoteByPath[key]
		switch {
		case force:
			plan.ToTransfer = append(plan.ToTransfer, d)
		case !ok:
			plan.ToTransfer = append(plan.ToTransfer, d)
		case remoteEntry.Digest != d.SHA256:
			plan.ToTransfer = append(plan.ToTransfer, d)
		default:
			plan.Unchanged = append(plan.Unchanged, d)
		}
	}

	for _, r := range remote {
		if _, ok := localPaths[normalize(r.Path)]; !ok {
			plan.ToDelete = append(plan.ToDelete, r)
		}
	}

	sortTransfer(plan.ToTransfer)
	sortTransfer(plan.Unchanged)
	sort.Slice(plan.ToDelete, func(i, j int) bool { return plan.ToDelete[i].Path < plan.ToDelete[j].Path })

	return plan
}

func sortTransfer(d []hasher.Digest) {
	sort.Slice(d, func(i, j int) bool { return d[i].Path < d[j].Path })
}
