package engine

import (
	"github.com/danieljhkim/packsmith/internal/planner"
)

// ImportResult represents the result of importing a base item.
type ImportResult struct {
	// ItemID is the imported item
	ItemID string `json:"item"`

	// ModelPath is the staged base model
	ModelPath string `json:"model_path"`

	// Copied is false when the model was already staged
	Copied bool `json:"copied"`
}

// MergeResult represents the result of merging one overlay.
type MergeResult struct {
	// Plan is the executed plan
	Plan *planner.MergePlan `json:"plan"`

	// TexturePath is the staged texture
	TexturePath string `json:"texture_path"`

	// ModelPath is the staged overlay model
	ModelPath string `json:"model_path"`

	// Slot is the texture slot that was redirected
	Slot string `json:"slot"`

	// Templated is true when the base model served as the overlay model
	Templated bool `json:"templated"`
}

// OverlayResult summarises one overlay of a build.
type OverlayResult struct {
	Item        string `json:"item"`
	Name        string `json:"name"`
	Index       int    `json:"custom_model_data"`
	ModelPath   string `json:"model_path"`
	TexturePath string `json:"texture_path"`
	Slot        string `json:"slot"`
	Templated   bool   `json:"templated"`
}

// PackageResult represents a written and digested artifact.
type PackageResult struct {
	// Path is the artifact location
	Path string `json:"path"`

	// Entries are the archive entries in write order
	Entries []string `json:"entries"`

	// Size is the artifact size in bytes
	Size int64 `json:"size"`

	// Digest is the lowercase hex SHA-256 of the artifact
	Digest string `json:"digest"`
}

// BuildResult represents the result of a build.
type BuildResult struct {
	// DryRun is set when nothing was written
	DryRun bool `json:"dry_run"`

	// Plans are the merge plans, one per overlay (dry run only)
	Plans []*planner.MergePlan `json:"plans,omitempty"`

	// Removed lists the staging entries cleared by the reset
	Removed []string `json:"removed,omitempty"`

	// Overlays are the merged overlays in build order
	Overlays []OverlayResult `json:"overlays"`

	// Artifact is the packaged artifact (nil on dry run)
	Artifact *PackageResult `json:"artifact,omitempty"`

	// URL is the published link (empty unless published)
	URL string `json:"url,omitempty"`
}
