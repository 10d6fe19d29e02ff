package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
)

// Scanner discovers test plan files under a directory.
type Scanner interface {
	Scan(rootDir string, includes []string, excludes []string) ([]string, error)
}

// PlanScanner implements Scanner using filepath.WalkDir.
type PlanScanner struct {
	Recursive bool
}

// NewScanner creates a new PlanScanner.
func NewScanner(recursive bool) *PlanScanner {
	return &PlanScanner{Recursive: recursive}
}

// Scan walks rootDir and returns the sorted paths of files matching any
// include glob and no exclude glob. Globs are matched against the path
// relative to rootDir and against the base name; "**" spans directories.
func (s *PlanScanner) Scan(rootDir string, includes []string, excludes []string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if !s.Recursive || matchAny(rel, excludes) {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchAny(rel, excludes) && matchAny(rel, includes) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewError("source", rootDir, 0, "failed to scan directory", err)
	}

	sort.Strings(found)
	return found, nil
}

func matchAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		if Match(rel, p) {
			return true
		}
	}
	return false
}

// Match reports whether the slash separated relative path rel matches glob.
func Match(rel, glob string) bool {
	glob = filepath.ToSlash(glob)

	head, tail, recursive := strings.Cut(glob, "**")
	if !recursive {
		if ok, _ := filepath.Match(glob, rel); ok {
			return true
		}
		ok, _ := filepath.Match(glob, filepath.Base(rel))
		return ok
	}

	head = strings.TrimSuffix(head, "/")
	tail = strings.TrimPrefix(tail, "/")
	if head != "" {
		if rel != head && !strings.HasPrefix(rel, head+"/") {
			return false
		}
		rel = strings.TrimPrefix(strings.TrimPrefix(rel, head), "/")
	}
	if tail == "" {
		return true
	}

	parts := strings.Split(rel, "/")
	for i := range parts {
		if ok, _ := filepath.Match(tail, strings.Join(parts[i:], "/")); ok {
			return true
		}
	}
	return false
}
