package engine

// Overlay describes one custom variant of a base item.
type Overlay struct {
	// Name is the stem of the staged texture and model files
	Name string

	// TexturePath is the overlay texture source
	TexturePath string

	// ModelPath is the optional overlay model; empty uses the base model as a template
	ModelPath string

	// Slot is the texture key to redirect; empty selects the first key
	Slot string
}

// ItemOverlay binds an overlay to the base item it customises.
type ItemOverlay struct {
	// ItemID is the base item identifier
	ItemID string

	// IsBlock reads the base model from the block folder of the base library
	IsBlock bool

	// Overlay is the overlay to merge
	Overlay Overlay
}

// BuildRequest represents a request to build a complete pack.
type BuildRequest struct {
	// Overlays are merged in order; order fixes each overlay's custom model data
	Overlays []ItemOverlay

	// Force allows replacing staged overlay files
	Force bool

	// DryRun plans every overlay without touching the staging tree
	DryRun bool

	// Publish uploads the artifact after packaging
	Publish bool

	// ArtifactPrefix names the artifact <prefix>-<timestamp>.zip
	ArtifactPrefix string

	// OutputDir overrides the configured output directory when set
	OutputDir string
}

// PackageRequest represents a request to package the current staging tree.
type PackageRequest struct {
	// ArtifactPrefix names the artifact <prefix>-<timestamp>.zip
	ArtifactPrefix string

	// OutputDir overrides the configured output directory when set
	OutputDir string
}
