// Package staging owns the on-disk layout of the base asset library and of
// the staging tree that a build assembles before packaging.
//
// Both trees follow the same convention:
//
//	<root>/assets/minecraft/models/{item,block}/<item>.json
//	<root>/assets/minecraft/textures/item/<item>.png
//
// The staging tree additionally carries a pack.mcmeta metadata file at its
// root, which survives every reset.
package staging

import (
	"path"
	"path/filepath"
)

// MetadataFile is the pack metadata file kept across resets.
const MetadataFile = "pack.mcmeta"

// Namespace is the asset namespace every staged file lives under.
const Namespace = "minecraft"

const (
	assetsDir   = "assets"
	modelsDir   = "models"
	texturesDir = "textures"
	itemDir     = "item"
	blockDir    = "block"
)

// Layout resolves paths inside a staging tree.
type Layout struct {
	Root string
}

// NewLayout creates a Layout rooted at packRoot.
func NewLayout(packRoot string) Layout {
	return Layout{Root: packRoot}
}

// Metadata returns the path of pack.mcmeta.
func (l Layout) Metadata() string {
	return filepath.Join(l.Root, MetadataFile)
}

// AssetsDir returns the asset subtree that gets packaged.
func (l Layout) AssetsDir() string {
	return filepath.Join(l.Root, assetsDir)
}

// ModelsDir returns the item models folder.
func (l Layout) ModelsDir() string {
	return filepath.Join(l.Root, assetsDir, Namespace, modelsDir, itemDir)
}

// TexturesDir returns the item textures folder.
func (l Layout) TexturesDir() string {
	return filepath.Join(l.Root, assetsDir, Namespace, texturesDir, itemDir)
}

// Skeleton returns the directories a scaffolded tree must contain.
func (l Layout) Skeleton() []string {
	return []string{l.ModelsDir(), l.TexturesDir()}
}

// ItemModel returns the staged base model of an item. Custom model data only
// works on item models, so block items stage here too.
func (l Layout) ItemModel(itemID string) string {
	return filepath.Join(l.ModelsDir(), itemID+".json")
}

// OverlayDir returns the folder holding an item's overlay models.
func (l Layout) OverlayDir(itemID string) string {
	return filepath.Join(l.ModelsDir(), itemID)
}

// OverlayModel returns the staged model path of an overlay.
func (l Layout) OverlayModel(itemID, overlayName string) string {
	return filepath.Join(l.OverlayDir(itemID), overlayName+".json")
}

// OverlayTexture returns the staged texture path of an overlay.
func (l Layout) OverlayTexture(overlayName string) string {
	return filepath.Join(l.TexturesDir(), overlayName+".png")
}

// Library resolves paths inside the base asset library.
type Library struct {
	Root string
}

// NewLibrary creates a Library rooted at baseRoot.
func NewLibrary(baseRoot string) Library {
	return Library{Root: baseRoot}
}

// Model returns the stock model of an item, from the block folder when isBlock is set.
func (b Library) Model(itemID string, isBlock bool) string {
	folder := itemDir
	if isBlock {
		folder = blockDir
	}
	return filepath.Join(b.Root, assetsDir, Namespace, modelsDir, folder, itemID+".json")
}

// TextureRef is the resource reference a model uses to point at a staged texture.
func TextureRef(overlayName string) string {
	return path.Join(itemDir, overlayName)
}

// ModelRef is the resource reference an override uses to select an overlay model.
func ModelRef(itemID, overlayName string) string {
	return path.Join(itemDir, itemID, overlayName)
}
