package engine

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/packsmith/internal/clock"
	"github.com/danieljhkim/packsmith/internal/config"
	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/hash"
	"github.com/danieljhkim/packsmith/internal/model"
	"github.com/danieljhkim/packsmith/internal/publish"
	"github.com/danieljhkim/packsmith/internal/staging"
)

const (
	totemModel   = `{"parent":"item/generated","textures":{"layer0":"item/totem_of_undying"}}`
	stoneModel   = `{"parent":"block/cube_all","textures":{"all":"block/stone"}}`
	compassModel = `{"parent":"item/generated","textures":{"layer0":"item/compass"},"overrides":[{"predicate":{"angle":0.5},"model":"item/compass_16"}]}`
	witherModel  = `{"parent":"item/generated","textures":{"layer0":"item/totem_of_undying"}}`
	packMeta     = `{"pack":{"pack_format":15,"description":"custom"}}`
)

var buildTime = time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)

var testPaths = config.Paths{
	BaseRoot:  "/base",
	PackRoot:  "/pack",
	OutputDir: "/dist",
}

type testEnv struct {
	engine    *Engine
	fs        *fsops.BillyFS
	publisher *publish.FakePublisher
	clock     *clock.FakeClock
	library   staging.Library
	layout    staging.Layout
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fs := fsops.NewMemFS()
	library := staging.NewLibrary(testPaths.BaseRoot)
	layout := staging.NewLayout(testPaths.PackRoot)

	files := map[string]string{
		library.Model("totem_of_undying", false): totemModel,
		library.Model("stone", true):             stoneModel,
		library.Model("compass", false):          compassModel,
		"/overlays/wither_totem.png":             "\x89PNG wither",
		"/overlays/wither_totem.json":            witherModel,
		"/overlays/py_totem.png":                 "\x89PNG py",
		"/overlays/mossy.png":                    "\x89PNG mossy",
		layout.Metadata():                        packMeta,
	}
	for p, c := range files {
		require.NoError(t, fs.AtomicWrite(p, []byte(c), 0644))
	}

	clk := clock.NewFakeClock(buildTime)
	publisher := publish.NewFakePublisher("https://cdn.example/packs")
	logger := log.New(io.Discard)

	e := New(fs, hash.NewSHA256Hasher(fs, 0), clk, logger, publisher, testPaths)
	require.NoError(t, e.Scaffold())

	return &testEnv{
		engine:    e,
		fs:        fs,
		publisher: publisher,
		clock:     clk,
		library:   library,
		layout:    layout,
	}
}

type stagedModel struct {
	Parent    string            `json:"parent"`
	Textures  map[string]string `json:"textures"`
	Overrides []model.Override  `json:"overrides"`
}

func readModel(t *testing.T, fs fsops.FS, path string) stagedModel {
	t.Helper()
	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	var m stagedModel
	require.NoError(t, json.Unmarshal(data, &m), string(data))
	return m
}

func readString(t *testing.T, fs fsops.FS, path string) string {
	t.Helper()
	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func requireMissing(t *testing.T, fs fsops.FS, path string) {
	t.Helper()
	exists, err := fs.Exists(path)
	require.NoError(t, err)
	require.False(t, exists, "%s should not exist", path)
}

var (
	witherOverlay = Overlay{
		Name:        "wither_totem",
		TexturePath: "/overlays/wither_totem.png",
		ModelPath:   "/overlays/wither_totem.json",
	}
	pyOverlay = Overlay{
		Name:        "py_totem",
		TexturePath: "/overlays/py_totem.png",
	}
)
