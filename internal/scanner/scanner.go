// Package scanner walks a local site directory and produces the set of files
// eligible for sync, applying caller-supplied ignore rules and inferring content
// types (spec.md §4.A).
package scanner

import (
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Matcher decides whether a relative, slash-normalized path should be excluded from
// sync. Supplied by the caller so nsyte doesn't hardcode one ignore-file format. A nil
// Matcher ignores nothing; the `nsyte run` command passes none.
type Matcher interface {
	Match(relPath string) bool
}

// File is one locally scanned file, ready for hashing.
type File struct {
	Path        string // slash-normalized path relative to the scan root, e.g. "/index.html"
	AbsPath     string // absolute filesystem path for reading content
	Size        int64
	ContentType string
}

// Result holds the outcome of a scan: included files plus the paths that were
// filtered out, both sorted, so callers get a stable, reviewable listing.
type Result struct {
	Included []File
	Ignored  []string
}

// Scan walks root and classifies every regular file under it using ignore. Symlinks
// are not followed; directories named ".git" or ".nsyte" are always skipped
// regardless of ignore, since neither belongs in a published site.
func Scan(root string, ignore Matcher) (Result, error) {
	var res Result

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".nsyte" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		slashRel := "/" + filepath.ToSlash(rel)

		if ignore != nil && ignore.Match(slashRel) {
			res.Ignored = append(res.Ignored, slashRel)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		res.Included = append(res.Included, File{
			Path:        slashRel,
			AbsPath:     path,
			Size:        info.Size(),
			ContentType: contentType(slashRel),
		})
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sort.Slice(res.Included, func(i, j int) bool { return res.Included[i].Path < res.Included[j].Path })
	sort.Strings(res.Ignored)
	return res, nil
}

// contentType infers a MIME type from a path's extension, defaulting to
// application/octet-stream when the extension is unknown (mirrors net/http's own
// ServeContent fallback).
func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
