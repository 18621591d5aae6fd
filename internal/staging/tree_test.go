package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

const packRoot = "/work/final-pack"

func newPopulatedTree(t *testing.T) (*fsops.BillyFS, *Tree) {
	t.Helper()
	fs := fsops.NewMemFS()
	files := map[string]string{
		packRoot + "/pack.mcmeta": `{"pack":{"pack_format":15,"description":"test"}}`,
		packRoot + "/pack.png":    "png",
		packRoot + "/assets/minecraft/models/item/totem_of_undying.json": "{}",
		packRoot + "/assets/minecraft/textures/item/wither_totem.png":    "png",
	}
	for p, content := range files {
		require.NoError(t, fs.AtomicWrite(p, []byte(content), 0644))
	}
	return fs, NewTree(fs)
}

func TestReset_KeepsMetadataOnly(t *testing.T) {
	fs, tree := newPopulatedTree(t)

	removed, err := tree.Reset(packRoot)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"assets", "pack.png"}, removed)

	files, err := fs.ListFiles(packRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"pack.mcmeta"}, files)

	data, err := fs.ReadFile(packRoot + "/pack.mcmeta")
	require.NoError(t, err)
	assert.Contains(t, string(data), "pack_format")
}

func TestReset_MissingRoot(t *testing.T) {
	tree := NewTree(fsops.NewMemFS())

	_, err := tree.Reset("/does/not/exist")
	require.ErrorIs(t, err, packerr.ErrIO)
}

func TestReset_RootIsFile(t *testing.T) {
	fs := fsops.NewMemFS()
	require.NoError(t, fs.AtomicWrite("/work/file", []byte("x"), 0644))

	_, err := NewTree(fs).Reset("/work/file")
	require.ErrorIs(t, err, packerr.ErrIO)
}

// vanishingFS deletes one entry right after a directory listing, as if
// another process removed it.
type vanishingFS struct {
	*fsops.BillyFS
	victim string
}

func (v *vanishingFS) ReadDir(path string) ([]os.FileInfo, error) {
	entries, err := v.BillyFS.ReadDir(path)
	if err == nil {
		_ = v.BillyFS.RemoveAll(filepath.Join(path, v.victim))
	}
	return entries, err
}

func TestReset_EntryVanishes(t *testing.T) {
	fs, _ := newPopulatedTree(t)
	tree := NewTree(&vanishingFS{BillyFS: fs, victim: "pack.png"})

	_, err := tree.Reset(packRoot)
	require.ErrorIs(t, err, packerr.ErrIO)
	assert.Contains(t, err.Error(), "pack.png")
}

func TestScaffold_Idempotent(t *testing.T) {
	fs, tree := newPopulatedTree(t)
	_, err := tree.Reset(packRoot)
	require.NoError(t, err)

	require.NoError(t, tree.Scaffold(packRoot))
	require.NoError(t, tree.Scaffold(packRoot))

	layout := NewLayout(packRoot)
	for _, dir := range layout.Skeleton() {
		info, err := fs.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestScaffold_FileInTheWay(t *testing.T) {
	fs := fsops.NewMemFS()
	require.NoError(t, fs.AtomicWrite(packRoot+"/assets/minecraft/models", []byte("oops"), 0644))

	err := NewTree(fs).Scaffold(packRoot)
	require.ErrorIs(t, err, packerr.ErrAlreadyExists)
}

func TestCheckMetadata(t *testing.T) {
	fs, tree := newPopulatedTree(t)
	require.NoError(t, tree.CheckMetadata(packRoot))

	require.NoError(t, fs.Remove(packRoot+"/pack.mcmeta"))
	require.ErrorIs(t, tree.CheckMetadata(packRoot), packerr.ErrSourceNotFound)
}

func TestLayout_Paths(t *testing.T) {
	layout := NewLayout("/p")
	assert.Equal(t, "/p/assets/minecraft/models/item/totem_of_undying.json", layout.ItemModel("totem_of_undying"))
	assert.Equal(t, "/p/assets/minecraft/models/item/totem_of_undying/wither_totem.json", layout.OverlayModel("totem_of_undying", "wither_totem"))
	assert.Equal(t, "/p/assets/minecraft/textures/item/wither_totem.png", layout.OverlayTexture("wither_totem"))

	lib := NewLibrary("/base")
	assert.Equal(t, "/base/assets/minecraft/models/block/stone.json", lib.Model("stone", true))
	assert.Equal(t, "/base/assets/minecraft/models/item/stone.json", lib.Model("stone", false))

	assert.Equal(t, "item/wither_totem", TextureRef("wither_totem"))
	assert.Equal(t, "item/totem_of_undying/wither_totem", ModelRef("totem_of_undying", "wither_totem"))
}
