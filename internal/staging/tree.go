package staging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

// Tree prepares a staging tree for a build.
type Tree struct {
	fs fsops.FS
}

// NewTree creates a new Tree.
func NewTree(fs fsops.FS) *Tree {
	return &Tree{fs: fs}
}

// Reset deletes every entry directly under packRoot except pack.mcmeta.
// It returns the names it removed.
func (t *Tree) Reset(packRoot string) ([]string, error) {
	info, err := t.fs.Stat(packRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: pack root %s: %v", packerr.ErrIO, packRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: pack root %s is not a directory", packerr.ErrIO, packRoot)
	}

	entries, err := t.fs.ReadDir(packRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read pack root: %v", packerr.ErrIO, err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.Name() == MetadataFile {
			continue
		}
		target := filepath.Join(packRoot, entry.Name())
		exists, err := t.fs.Exists(target)
		if err != nil {
			return removed, fmt.Errorf("%w: failed to check %s: %v", packerr.ErrIO, entry.Name(), err)
		}
		if !exists {
			return removed, fmt.Errorf("%w: %s vanished during reset", packerr.ErrIO, entry.Name())
		}
		if err := t.fs.RemoveAll(target); err != nil {
			return removed, fmt.Errorf("%w: failed to remove %s: %v", packerr.ErrIO, entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}

	return removed, nil
}

// Scaffold creates the fixed skeleton under packRoot. Existing directories
// are accepted, so scaffolding twice is harmless; a skeleton path occupied by
// a file is reported as ErrAlreadyExists.
func (t *Tree) Scaffold(packRoot string) error {
	for _, dir := range NewLayout(packRoot).Skeleton() {
		if err := t.checkNotFile(packRoot, dir); err != nil {
			return err
		}
		if err := t.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: failed to create %s: %v", packerr.ErrIO, dir, err)
		}
	}
	return nil
}

// checkNotFile walks from packRoot down to dir and fails on the first
// component that exists as something other than a directory.
func (t *Tree) checkNotFile(packRoot, dir string) error {
	rel, err := filepath.Rel(packRoot, dir)
	if err != nil {
		return fmt.Errorf("%w: %v", packerr.ErrIO, err)
	}
	current := packRoot
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		current = filepath.Join(current, part)
		info, err := t.fs.Stat(current)
		if err != nil {
			// Nothing below a missing component can exist either
			return nil
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s exists and is not a directory", packerr.ErrAlreadyExists, current)
		}
	}
	return nil
}

// CheckMetadata verifies that packRoot carries pack.mcmeta.
func (t *Tree) CheckMetadata(packRoot string) error {
	exists, err := t.fs.Exists(NewLayout(packRoot).Metadata())
	if err != nil {
		return fmt.Errorf("%w: %v", packerr.ErrIO, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s missing in %s", packerr.ErrSourceNotFound, MetadataFile, packRoot)
	}
	return nil
}
