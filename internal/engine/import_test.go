package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/packsmith/internal/packerr"
)

func TestImportBaseItem(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.ImportBaseItem("totem_of_undying", false)
	require.NoError(t, err)
	assert.True(t, res.Copied)
	assert.Equal(t, env.layout.ItemModel("totem_of_undying"), res.ModelPath)
	assert.Equal(t, totemModel, readString(t, env.fs, res.ModelPath))

	info, err := env.fs.Stat(env.layout.OverlayDir("totem_of_undying"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestImportBaseItem_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.ImportBaseItem("totem_of_undying", false)
	require.NoError(t, err)
	before, err := env.fs.ListFiles("/pack")
	require.NoError(t, err)

	res, err := env.engine.ImportBaseItem("totem_of_undying", false)
	require.NoError(t, err)
	assert.False(t, res.Copied)

	after, err := env.fs.ListFiles("/pack")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, totemModel, readString(t, env.fs, res.ModelPath))
}

func TestImportBaseItem_KeepsRegisteredOverrides(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.ImportBaseItem("totem_of_undying", false)
	require.NoError(t, err)
	_, err = env.engine.RegisterOverride("totem_of_undying", "wither_totem")
	require.NoError(t, err)

	_, err = env.engine.ImportBaseItem("totem_of_undying", false)
	require.NoError(t, err)
	assert.Len(t, readModel(t, env.fs, env.layout.ItemModel("totem_of_undying")).Overrides, 1)
}

func TestImportBaseItem_BlockStagedAsItem(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.ImportBaseItem("stone", true)
	require.NoError(t, err)
	assert.Equal(t, env.layout.ItemModel("stone"), res.ModelPath)
	assert.Equal(t, stoneModel, readString(t, env.fs, res.ModelPath))
}

func TestImportBaseItem_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.ImportBaseItem("elytra", false)
	require.ErrorIs(t, err, packerr.ErrSourceNotFound)
	requireMissing(t, env.fs, env.layout.ItemModel("elytra"))

	// stone only exists in the block folder
	_, err = env.engine.ImportBaseItem("stone", false)
	require.ErrorIs(t, err, packerr.ErrSourceNotFound)

	_, err = env.engine.ImportBaseItem("../escape", false)
	require.ErrorIs(t, err, ErrValidation)
}
