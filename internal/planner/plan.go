package planner

import (
	"fmt"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
	"github.com/danieljhkim/packsmith/internal/staging"
)

// MergeRequest describes a single overlay merge.
type MergeRequest struct {
	// ItemID is the base item the overlay customises
	ItemID string

	// IsBlock selects the block folder of the base library for the template model
	IsBlock bool

	// Name is the overlay's display name, used as the staged file stem
	Name string

	// TexturePath is the overlay texture source
	TexturePath string

	// ModelPath is the optional overlay model source; empty uses the base model as template
	ModelPath string

	// Slot is the texture key to redirect; empty selects the first key
	Slot string

	// Force allows replacing already staged overlay files
	Force bool
}

// MergePlan represents the ordered steps of one overlay merge.
type MergePlan struct {
	// ItemID is the base item
	ItemID string `json:"item"`

	// Overlay is the overlay name
	Overlay string `json:"overlay"`

	// Operations is the ordered list of operations to execute
	Operations []Operation `json:"operations"`

	// Conflicts is a list of detected conflicts (empty if no conflicts)
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Operation represents a single filesystem step of a merge.
type Operation struct {
	// Type is the operation type: "copy_texture", "copy_model", "template_model"
	Type string `json:"type"`

	// SourcePath is the absolute source path
	SourcePath string `json:"source"`

	// DestPath is the absolute destination in the staging tree
	DestPath string `json:"dest"`

	// Slot is the texture slot to redirect (model operations only)
	Slot string `json:"slot,omitempty"`

	// TextureRef is the value written into the slot (model operations only)
	TextureRef string `json:"texture_ref,omitempty"`

	// Replaces is set when DestPath already exists and will be overwritten
	Replaces bool `json:"replaces,omitempty"`
}

// Conflict represents a collision detected during planning.
type Conflict struct {
	// Path is the staging path where the conflict was detected
	Path string `json:"path"`

	// Reason is a human-readable explanation of the conflict
	Reason string `json:"reason"`
}

// Operation type constants
const (
	OpCopyTexture   = "copy_texture"
	OpCopyModel     = "copy_model"
	OpTemplateModel = "template_model"
)

// NewMergePlan creates a new empty MergePlan.
func NewMergePlan(itemID, overlay string) *MergePlan {
	return &MergePlan{
		ItemID:     itemID,
		Overlay:    overlay,
		Operations: []Operation{},
		Conflicts:  []Conflict{},
	}
}

// HasConflicts returns true if the plan has any conflicts.
func (p *MergePlan) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// AddOperation adds an operation to the plan.
func (p *MergePlan) AddOperation(op Operation) {
	p.Operations = append(p.Operations, op)
}

// AddConflict adds a conflict to the plan.
func (p *MergePlan) AddConflict(conflict Conflict) {
	p.Conflicts = append(p.Conflicts, conflict)
}

// BuildMergePlan resolves sources and destinations for req and checks them
// against the staging tree. Missing sources are errors; collisions are
// recorded as conflicts so the caller can decide how to report them.
func BuildMergePlan(fs fsops.FS, layout staging.Layout, library staging.Library, req *MergeRequest) (*MergePlan, error) {
	if err := fs.ValidateIdentifier(req.ItemID); err != nil {
		return nil, fmt.Errorf("invalid item id: %w", err)
	}
	if err := fs.ValidateIdentifier(req.Name); err != nil {
		return nil, fmt.Errorf("invalid overlay name: %w", err)
	}

	plan := NewMergePlan(req.ItemID, req.Name)
	checker := NewConflictChecker(fs, req.Force)

	if err := requireSource(fs, req.TexturePath, "overlay texture"); err != nil {
		return nil, err
	}
	textureDest := layout.OverlayTexture(req.Name)
	conflict, replaces := checker.CheckPath(textureDest)
	if conflict != nil {
		plan.AddConflict(*conflict)
	}
	plan.AddOperation(Operation{
		Type:       OpCopyTexture,
		SourcePath: req.TexturePath,
		DestPath:   textureDest,
		Replaces:   replaces,
	})

	modelOp := Operation{
		Type:       OpCopyModel,
		SourcePath: req.ModelPath,
		DestPath:   layout.OverlayModel(req.ItemID, req.Name),
		Slot:       req.Slot,
		TextureRef: staging.TextureRef(req.Name),
	}
	if req.ModelPath == "" {
		modelOp.Type = OpTemplateModel
		modelOp.SourcePath = library.Model(req.ItemID, req.IsBlock)
		if err := requireSource(fs, modelOp.SourcePath, "base model template"); err != nil {
			return nil, err
		}
	} else if err := requireSource(fs, req.ModelPath, "overlay model"); err != nil {
		return nil, err
	}
	conflict, replaces = checker.CheckPath(modelOp.DestPath)
	if conflict != nil {
		plan.AddConflict(*conflict)
	}
	modelOp.Replaces = replaces
	plan.AddOperation(modelOp)

	return plan, nil
}

func requireSource(fs fsops.FS, path, what string) error {
	if path == "" {
		return fmt.Errorf("%w: %s path is empty", packerr.ErrSourceNotFound, what)
	}
	info, err := fs.Stat(path)
	if err != nil {
		exists, existsErr := fs.Exists(path)
		if existsErr == nil && !exists {
			return fmt.Errorf("%w: %s %s", packerr.ErrSourceNotFound, what, path)
		}
		return fmt.Errorf("%w: %s %s: %v", packerr.ErrIO, what, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s %s is a directory", packerr.ErrSourceNotFound, what, path)
	}
	return nil
}
