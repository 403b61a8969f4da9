package client

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// ErrNotInstalled is returned when no candidate for a descriptor resolves
// to an executable on this machine.
var ErrNotInstalled = fmt.Errorf("client not installed")

// Locator resolves descriptors to absolute executable paths. It only reads
// the filesystem, never mutates it.
type Locator struct {
	// Root is the directory glob patterns are expanded from. Defaults to
	// the process working directory.
	Root string
}

// NewLocator creates a locator rooted at the working directory.
func NewLocator() *Locator {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Locator{Root: wd}
}

// Locate resolves a descriptor to an absolute executable path. Candidates
// are checked in order: PATH lookup, fixed install locations, then glob
// expansion for standalone-distributed binaries.
func (l *Locator) Locate(desc Descriptor) (string, error) {
	if desc.Executable != "" {
		if path, err := exec.LookPath(desc.Executable); err == nil {
			return absolute(path), nil
		}
	}

	for _, loc := range desc.Locations {
		if info, err := os.Stat(loc); err == nil && !info.IsDir() {
			return absolute(loc), nil
		}
	}

	if len(desc.Globs) > 0 {
		if path, ok := l.expandGlobs(desc.Globs); ok {
			return absolute(path), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotInstalled, desc.ID)
}

// FirstAvailable tries descriptors in catalog order and returns the first
// one that locates. When preferredID is set, only that descriptor is tried:
// an explicitly requested client never falls back to another.
func (l *Locator) FirstAvailable(descs []Descriptor, preferredID string) (Descriptor, string, error) {
	if preferredID != "" {
		for _, d := range descs {
			if d.ID == preferredID {
				path, err := l.Locate(d)
				return d, path, err
			}
		}
		return Descriptor{}, "", fmt.Errorf("%w: %s", ErrUnknownClient, preferredID)
	}

	for _, d := range descs {
		if path, err := l.Locate(d); err == nil {
			return d, path, nil
		}
	}
	return Descriptor{}, "", ErrNotInstalled
}

// Installed reports every descriptor from descs that locates, preserving
// catalog order.
func (l *Locator) Installed(descs []Descriptor) []Info {
	infos := []Info{}
	for _, d := range descs {
		if _, err := l.Locate(d); err == nil {
			infos = append(infos, d.Info())
		}
	}
	return infos
}

// expandGlobs walks Root once and matches every file against the patterns,
// then picks the lexicographically greatest match. The ordering is only a
// deterministic tie-break: it tends to prefer "64" or higher-versioned
// variants when names share a prefix, it does not compare versions.
func (l *Locator) expandGlobs(patterns []string) (string, bool) {
	var matches []string
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, l.Root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(l.Root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				matches = append(matches, p)
				return nil
			}
		}
		return nil
	})
	if err != nil || len(matches) == 0 {
		return "", false
	}

	sort.Strings(matches)
	return matches[len(matches)-1], true
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
