package integration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/danieljhkim/packsmith/internal/clock"
	"github.com/danieljhkim/packsmith/internal/config"
	"github.com/danieljhkim/packsmith/internal/engine"
	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/hash"
	"github.com/danieljhkim/packsmith/internal/manifest"
	"github.com/danieljhkim/packsmith/internal/publish"
)

var buildTime = time.Date(2026, time.May, 6, 7, 8, 9, 0, time.UTC)

// project is a packsmith project on disk with an engine wired the way the
// CLI wires it, except for the clock and publisher.
type project struct {
	dir       string
	cfg       *config.Config
	fs        *fsops.BillyFS
	clock     *clock.FakeClock
	publisher *publish.FakePublisher
	engine    *engine.Engine
}

func (p *project) path(parts ...string) string {
	return filepath.Join(append([]string{p.dir}, parts...)...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// setupProject lays out a base library with a totem and a stone block, a
// staging root with pack.mcmeta, overlay sources and a packsmith.toml, then
// loads the configuration from the project directory.
func setupProject(t *testing.T) *project {
	t.Helper()
	dir := t.TempDir()
	p := &project{dir: dir}

	writeFile(t, p.path("base", "assets", "minecraft", "models", "item", "totem_of_undying.json"),
		`{"parent":"item/generated","textures":{"layer0":"item/totem_of_undying"}}`)
	writeFile(t, p.path("base", "assets", "minecraft", "models", "block", "stone.json"),
		`{"parent":"block/cube_all","textures":{"all":"block/stone"}}`)
	writeFile(t, p.path("pack", "pack.mcmeta"), `{"pack":{"pack_format":15,"description":"integration"}}`)
	writeFile(t, p.path("pack", "notes.txt"), "left over from an earlier build")
	writeFile(t, p.path("overlays", "wither_totem.png"), "wither-png")
	writeFile(t, p.path("overlays", "wither_totem.json"),
		`{"parent":"item/generated","textures":{"layer0":"item/totem_of_undying"}}`)
	writeFile(t, p.path("overlays", "py_totem.png"), "py-png")
	writeFile(t, p.path("overlays", "mossy_stone.png"), "mossy-png")

	writeFile(t, p.path("packsmith.toml"), fmt.Sprintf(`
base_root = %q
pack_root = %q
output_dir = %q
artifact_prefix = "Integration"
`, p.path("base"), p.path("pack"), p.path("dist")))

	cfg, _, err := config.Load(config.LoadOptions{Dir: dir})
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	p.cfg = cfg
	p.fs = fsops.NewRealFS()
	p.clock = clock.NewFakeClock(buildTime)
	p.publisher = publish.NewFakePublisher("https://cdn.example/packs")
	p.engine = engine.New(p.fs, hash.NewSHA256Hasher(p.fs, cfg.Hash.ChunkSize), p.clock,
		log.New(io.Discard), p.publisher, cfg.Paths())
	return p
}

// writeManifest writes an overlay manifest into the overlays directory.
func (p *project) writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := p.path("overlays", "overlays.toml")
	writeFile(t, path, content)
	return path
}

// buildRequest loads the manifest at path into a build request.
func (p *project) buildRequest(t *testing.T, path string) *engine.BuildRequest {
	t.Helper()
	m, err := manifest.Load(p.fs, path)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	req := &engine.BuildRequest{ArtifactPrefix: p.cfg.ArtifactPrefix}
	for _, entry := range m.Overlays {
		req.Overlays = append(req.Overlays, engine.ItemOverlay{
			ItemID:  entry.Item,
			IsBlock: entry.Block,
			Overlay: engine.Overlay{
				Name:        entry.Name,
				TexturePath: entry.Texture,
				ModelPath:   entry.Model,
				Slot:        entry.Slot,
			},
		})
	}
	return req
}
