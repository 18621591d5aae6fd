package planner

import (
	"fmt"

	"github.com/danieljhkim/packsmith/internal/fsops"
)

// ConflictChecker checks staging destinations for collisions.
type ConflictChecker struct {
	fs    fsops.FS
	force bool
}

// NewConflictChecker creates a new ConflictChecker.
func NewConflictChecker(fs fsops.FS, force bool) *ConflictChecker {
	return &ConflictChecker{
		fs:    fs,
		force: force,
	}
}

// CheckPath checks destPath before a merge writes to it.
// It returns a Conflict when the path cannot be written, and replaces=true
// when an existing file will be overwritten because force is enabled.
func (c *ConflictChecker) CheckPath(destPath string) (conflict *Conflict, replaces bool) {
	exists, err := c.fs.Exists(destPath)
	if err != nil {
		return &Conflict{
			Path:   destPath,
			Reason: fmt.Sprintf("Failed to check path: %v", err),
		}, false
	}

	if !exists {
		return nil, false
	}

	info, err := c.fs.Stat(destPath)
	if err != nil {
		return &Conflict{
			Path:   destPath,
			Reason: fmt.Sprintf("Failed to stat existing path: %v", err),
		}, false
	}

	// A directory is never replaced, even with force
	if info.IsDir() {
		return &Conflict{
			Path:   destPath,
			Reason: "Directory exists at destination",
		}, false
	}

	if !c.force {
		return &Conflict{
			Path:   destPath,
			Reason: "File already staged at destination",
		}, false
	}

	return nil, true
}
