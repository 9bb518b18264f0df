// Package candidates resolves an ordered list of candidate files.
//
// Candidates are probed strictly in order and probing stops at the first hit.
// A missing file advances to the next candidate; any other failure stops the
// walk and is returned.
package candidates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCandidate is returned when every candidate was missing.
var ErrNoCandidate = errors.New("no candidate file found")

// LoadFunc loads one candidate. It must return an error wrapping fs.ErrNotExist
// when the file does not exist.
type LoadFunc[T any] func(path string) (T, error)

// Hit is the first successfully loaded candidate.
type Hit[T any] struct {
	Path  string
	Value T
}

// List is an ordered set of candidate paths.
type List []string

// Paths builds a List rooted at root. Empty entries are skipped, absolute
// entries are kept as is, duplicates after cleaning are dropped.
func Paths(root string, entries ...string) List {
	seen := make(map[string]struct{}, len(entries))
	out := make(List, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		p := e
		if !filepath.IsAbs(p) && root != "" {
			p = filepath.Join(root, p)
		}
		p = filepath.Clean(p)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Then returns a new list with more appended after l.
func (l List) Then(more List) List {
	out := make(List, 0, len(l)+len(more))
	out = append(out, l...)
	return append(out, more...)
}

// FirstExisting loads candidates in order and returns the first one that exists.
func FirstExisting[T any](paths List, load LoadFunc[T]) (Hit[T], error) {
	for _, p := range paths {
		v, err := load(p)
		if err == nil {
			return Hit[T]{Path: p, Value: v}, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return Hit[T]{}, fmt.Errorf("candidate %s: %w", p, err)
	}
	return Hit[T]{}, fmt.Errorf("%w (tried %s)", ErrNoCandidate, strings.Join(paths, ", "))
}

// ReadFile is a LoadFunc returning the raw bytes of a regular file.
// Directories are reported as missing so that a directory named like a
// candidate does not stop the walk.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, fs.ErrNotExist)
	}
	return os.ReadFile(path)
}

// FirstDir returns the first entry for which accept returns true.
// It is used for directory lookups where "exists" is not the only criterion.
func FirstDir(paths List, accept func(dir string) bool) (string, bool) {
	for _, p := range paths {
		if accept(p) {
			return p, true
		}
	}
	return "", false
}
