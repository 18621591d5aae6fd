// Package manifest loads the list of overlays a build merges.
//
// A manifest is a TOML file with one [[overlay]] table per overlay:
//
//	[[overlay]]
//	item    = "totem_of_undying"
//	name    = "wither_totem"
//	texture = "textures/wither_totem.png"
//	model   = "models/wither_totem.json" # optional
//	block   = false                      # optional
//	slot    = "layer0"                   # optional
//
// Relative paths resolve against the directory containing the manifest.
// Overlays are merged in file order, which fixes their custom model data.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

// ErrInvalidManifest indicates the manifest failed to decode or validate.
var ErrInvalidManifest = errors.New("invalid manifest")

// Entry is one overlay declaration.
type Entry struct {
	Item    string `toml:"item"`
	Name    string `toml:"name"`
	Texture string `toml:"texture"`
	Model   string `toml:"model,omitempty"`
	Block   bool   `toml:"block,omitempty"`
	Slot    string `toml:"slot,omitempty"`
}

// Manifest is a decoded overlay manifest.
type Manifest struct {
	Overlays []Entry `toml:"overlay"`
}

// Load reads and validates the manifest at path.
func Load(fs fsops.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: manifest %s", packerr.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read manifest: %v", packerr.ErrIO, err)
	}
	return Parse(fs, data, filepath.Dir(path))
}

// Parse decodes manifest data, resolves relative paths against baseDir and
// validates the result. Unknown keys are rejected so typos do not silently
// drop a model or slot.
func Parse(fs fsops.FS, data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, strict.String())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	for i := range m.Overlays {
		m.Overlays[i].Texture = resolve(baseDir, m.Overlays[i].Texture)
		m.Overlays[i].Model = resolve(baseDir, m.Overlays[i].Model)
	}

	if err := m.Validate(fs); err != nil {
		return nil, err
	}
	return &m, nil
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}

// Validate checks required fields and uniqueness. Overlay names must be
// unique across the whole manifest because every texture lands in the same
// folder.
func (m *Manifest) Validate(fs fsops.FS) error {
	if len(m.Overlays) == 0 {
		return fmt.Errorf("%w: no [[overlay]] entries", ErrInvalidManifest)
	}

	names := make(map[string]int)
	for i, e := range m.Overlays {
		pos := i + 1
		if err := fs.ValidateIdentifier(e.Item); err != nil {
			return fmt.Errorf("%w: overlay #%d item: %v", ErrInvalidManifest, pos, err)
		}
		if err := fs.ValidateIdentifier(e.Name); err != nil {
			return fmt.Errorf("%w: overlay #%d name: %v", ErrInvalidManifest, pos, err)
		}
		if e.Texture == "" {
			return fmt.Errorf("%w: overlay #%d (%s) has no texture", ErrInvalidManifest, pos, e.Name)
		}
		if prev, ok := names[e.Name]; ok {
			return fmt.Errorf("%w: overlay name %q used by #%d and #%d", ErrInvalidManifest, e.Name, prev, pos)
		}
		names[e.Name] = pos
	}
	return nil
}

// Items returns the distinct item IDs in first-seen order.
func (m *Manifest) Items() []string {
	seen := make(map[string]bool)
	var items []string
	for _, e := range m.Overlays {
		if !seen[e.Item] {
			seen[e.Item] = true
			items = append(items, e.Item)
		}
	}
	return items
}
