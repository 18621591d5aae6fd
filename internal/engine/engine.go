// Package engine provides the core business logic for packsmith operations.
//
// The engine package acts as the orchestration layer between CLI commands and
// lower-level operations. It owns the staging tree layout and coordinates the
// stages of a build.
//
// Key components:
//   - Reset/Scaffold: prepare the staging tree
//   - ImportBaseItem: stage a base item's model once
//   - MergeOverlay: stage an overlay's texture and model, rolled back on failure
//   - RegisterOverride: append a custom model data rule to a base model
//   - Package/Publish: write, digest and upload the artifact
//   - Build: run every stage for a list of overlays
package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/danieljhkim/packsmith/internal/clock"
	"github.com/danieljhkim/packsmith/internal/config"
	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/hash"
	"github.com/danieljhkim/packsmith/internal/publish"
	"github.com/danieljhkim/packsmith/internal/staging"
)

// Engine orchestrates all packsmith operations.
// It is the main API surface called by the CLI.
type Engine struct {
	fs        fsops.FS
	hasher    hash.Hasher
	clock     clock.Clock
	logger    *log.Logger
	publisher publish.Publisher
	paths     config.Paths
	layout    staging.Layout
	library   staging.Library
	tree      *staging.Tree
}

// New creates a new Engine with the given dependencies. publisher may be nil
// when publishing is not configured; logger may be nil to discard logs.
func New(
	fs fsops.FS,
	hasher hash.Hasher,
	clk clock.Clock,
	logger *log.Logger,
	publisher publish.Publisher,
	paths config.Paths,
) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		fs:        fs,
		hasher:    hasher,
		clock:     clk,
		logger:    logger,
		publisher: publisher,
		paths:     paths,
		layout:    staging.NewLayout(paths.PackRoot),
		library:   staging.NewLibrary(paths.BaseRoot),
		tree:      staging.NewTree(fs),
	}
}

// Layout returns the staging tree layout the engine writes to.
func (e *Engine) Layout() staging.Layout {
	return e.layout
}

// Reset clears the staging tree, keeping pack.mcmeta.
func (e *Engine) Reset() ([]string, error) {
	removed, err := e.tree.Reset(e.paths.PackRoot)
	if err != nil {
		return removed, err
	}
	e.logger.Debug("reset staging tree", "root", e.paths.PackRoot, "removed", len(removed))
	return removed, nil
}

// Scaffold creates the staging skeleton.
func (e *Engine) Scaffold() error {
	if err := e.tree.Scaffold(e.paths.PackRoot); err != nil {
		return err
	}
	e.logger.Debug("scaffolded staging tree", "root", e.paths.PackRoot)
	return nil
}

func (e *Engine) validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := e.fs.ValidateIdentifier(id); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// artifactName returns <prefix>-<YYYYMMDD-HHMMSS>.zip for the current time.
func (e *Engine) artifactName(prefix string) string {
	return fmt.Sprintf("%s-%s.zip", strings.TrimSpace(prefix), clock.Stamp(e.clock))
}
