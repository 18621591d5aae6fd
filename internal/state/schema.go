package state

import (
	"time"

	"github.com/google/uuid"
)

// MaxRecords bounds the history; older records are dropped on append.
const MaxRecords = 50

// History is the build history of one output directory.
type History struct {
	// Builds are ordered oldest first
	Builds []BuildRecord `json:"builds"`
}

// BuildRecord describes one successful build.
type BuildRecord struct {
	// ID uniquely identifies the build
	ID string `json:"id"`

	// FinishedAt is when the artifact was packaged
	FinishedAt time.Time `json:"finishedAt"`

	// Manifest is the overlay manifest the build used, if any
	Manifest string `json:"manifest,omitempty"`

	// Artifact is the artifact path
	Artifact string `json:"artifact"`

	// Digest is the artifact's SHA-256
	Digest string `json:"digest"`

	// Size is the artifact size in bytes
	Size int64 `json:"size"`

	// URL is the published link (empty if not published)
	URL string `json:"url,omitempty"`

	// Overlays lists the custom model data assigned to each overlay
	Overlays []OverlayRecord `json:"overlays"`
}

// OverlayRecord maps one overlay to the custom model data that selects it.
type OverlayRecord struct {
	Item            string `json:"item"`
	Name            string `json:"name"`
	CustomModelData int    `json:"customModelData"`
}

// NewHistory creates a new empty History.
func NewHistory() *History {
	return &History{Builds: []BuildRecord{}}
}

// NewBuildRecord creates a record with a fresh ID.
func NewBuildRecord(finishedAt time.Time) *BuildRecord {
	return &BuildRecord{
		ID:         uuid.NewString(),
		FinishedAt: finishedAt,
		Overlays:   []OverlayRecord{},
	}
}

// Latest returns the most recent record, or nil when the history is empty.
func (h *History) Latest() *BuildRecord {
	if len(h.Builds) == 0 {
		return nil
	}
	return &h.Builds[len(h.Builds)-1]
}

// Add appends rec, dropping the oldest records beyond MaxRecords.
func (h *History) Add(rec BuildRecord) {
	h.Builds = append(h.Builds, rec)
	if extra := len(h.Builds) - MaxRecords; extra > 0 {
		h.Builds = append([]BuildRecord(nil), h.Builds[extra:]...)
	}
}
