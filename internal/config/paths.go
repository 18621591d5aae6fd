package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the filesystem locations a build works with.
type Paths struct {
	// BaseRoot is the unpacked base game assets, read only
	BaseRoot string

	// PackRoot is the staging tree that builds reset and refill
	PackRoot string

	// OutputDir receives finished artifacts
	OutputDir string
}

// Paths returns the configured locations.
func (c *Config) Paths() Paths {
	return Paths{
		BaseRoot:  c.BaseRoot,
		PackRoot:  c.PackRoot,
		OutputDir: c.OutputDir,
	}
}

// Absolute resolves relative locations against dir. An empty dir means the
// current working directory.
func (p Paths) Absolute(dir string) (Paths, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return p, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	abs := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return filepath.Clean(path)
		}
		return filepath.Join(dir, path)
	}

	return Paths{
		BaseRoot:  abs(p.BaseRoot),
		PackRoot:  abs(p.PackRoot),
		OutputDir: abs(p.OutputDir),
	}, nil
}

// OutputInPackRoot reports whether OutputDir is PackRoot or lies below it.
// Artifacts there would be packaged into the next artifact and deleted by
// every reset.
func (p Paths) OutputInPackRoot() bool {
	return Within(p.PackRoot, p.OutputDir)
}

// Within reports whether path is root or lies below it.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
