package integration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danieljhkim/packsmith/internal/archive"
	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
	"github.com/danieljhkim/packsmith/internal/state"
)

const fullManifest = `
[[overlay]]
item = "totem_of_undying"
name = "wither_totem"
texture = "wither_totem.png"
model = "wither_totem.json"

[[overlay]]
item = "totem_of_undying"
name = "py_totem"
texture = "py_totem.png"

[[overlay]]
item = "stone"
name = "mossy_stone"
texture = "mossy_stone.png"
block = true
`

type override struct {
	Predicate struct {
		CustomModelData int `json:"custom_model_data"`
	} `json:"predicate"`
	Model string `json:"model"`
}

type stagedModel struct {
	Textures  map[string]string `json:"textures"`
	Overrides []override        `json:"overrides"`
}

func readModel(t *testing.T, path string) stagedModel {
	t.Helper()
	var m stagedModel
	if err := json.Unmarshal([]byte(readFile(t, path)), &m); err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return m
}

func TestPipeline_BuildPublishAndRecord(t *testing.T) {
	p := setupProject(t)
	req := p.buildRequest(t, p.writeManifest(t, fullManifest))
	req.Publish = true

	result, err := p.engine.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := filepath.Base(result.Artifact.Path); got != "Integration-20260506-070809.zip" {
		t.Errorf("artifact name = %s", got)
	}
	if result.URL != "https://cdn.example/packs/Integration-20260506-070809.zip" {
		t.Errorf("URL = %s", result.URL)
	}
	if len(p.publisher.Calls) != 1 || p.publisher.Calls[0].Digest != result.Artifact.Digest {
		t.Errorf("unexpected publish calls %+v", p.publisher.Calls)
	}

	totem := readModel(t, p.path("pack", "assets", "minecraft", "models", "item", "totem_of_undying.json"))
	if len(totem.Overrides) != 2 {
		t.Fatalf("expected 2 totem overrides, got %+v", totem.Overrides)
	}
	for i, want := range []string{"item/totem_of_undying/wither_totem", "item/totem_of_undying/py_totem"} {
		if totem.Overrides[i].Model != want || totem.Overrides[i].Predicate.CustomModelData != i+1 {
			t.Errorf("override %d = %+v, want %s at %d", i, totem.Overrides[i], want, i+1)
		}
	}

	stone := readModel(t, p.path("pack", "assets", "minecraft", "models", "item", "stone.json"))
	if len(stone.Overrides) != 1 || stone.Overrides[0].Model != "item/stone/mossy_stone" {
		t.Errorf("unexpected stone overrides %+v", stone.Overrides)
	}
	mossy := readModel(t, p.path("pack", "assets", "minecraft", "models", "item", "stone", "mossy_stone.json"))
	if mossy.Textures["all"] != "item/mossy_stone" {
		t.Errorf("mossy_stone texture = %q", mossy.Textures["all"])
	}

	store := state.NewFileHistoryStore(p.fs, p.cfg.OutputDir)
	rec := state.NewBuildRecord(p.clock.Now())
	rec.Artifact = result.Artifact.Path
	rec.Digest = result.Artifact.Digest
	rec.Size = result.Artifact.Size
	rec.URL = result.URL
	for _, o := range result.Overlays {
		rec.Overlays = append(rec.Overlays, state.OverlayRecord{Item: o.Item, Name: o.Name, CustomModelData: o.Index})
	}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if latest := history.Latest(); latest == nil || latest.Overlays[2].Name != "mossy_stone" || latest.Overlays[2].CustomModelData != 1 {
		t.Errorf("unexpected history %+v", history.Latest())
	}
}

func TestPipeline_ArtifactMatchesStagingTree(t *testing.T) {
	p := setupProject(t)
	req := p.buildRequest(t, p.writeManifest(t, fullManifest))

	result, err := p.engine.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Unpack into memory so the check does not depend on the temp dir layout.
	mem := fsops.NewMemFS()
	data := readFile(t, result.Artifact.Path)
	if err := mem.AtomicWrite("/artifact.zip", []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	names, err := archive.Unpack(mem, "/artifact.zip", "/out")
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if len(names) != len(result.Artifact.Entries) {
		t.Fatalf("unpacked %d entries, artifact reported %d", len(names), len(result.Artifact.Entries))
	}

	for _, name := range names {
		staged := readFile(t, p.path("pack", filepath.FromSlash(name)))
		got, err := mem.ReadFile(filepath.Join("/out", filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("failed to read unpacked %s: %v", name, err)
		}
		if string(got) != staged {
			t.Errorf("%s differs from the staging tree", name)
		}
	}
	if names[0] != "pack.mcmeta" {
		t.Errorf("pack.mcmeta should be the first entry, got %v", names[0])
	}
	for _, name := range names {
		if name == "notes.txt" {
			t.Error("reset should have removed notes.txt before packaging")
		}
	}
}

func TestPipeline_RebuildIsReproducible(t *testing.T) {
	p := setupProject(t)
	manifestPath := p.writeManifest(t, fullManifest)

	first, err := p.engine.Build(context.Background(), p.buildRequest(t, manifestPath))
	if err != nil {
		t.Fatalf("first Build() error = %v", err)
	}

	p.clock.Advance(time.Hour)
	second, err := p.engine.Build(context.Background(), p.buildRequest(t, manifestPath))
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}

	if first.Artifact.Path == second.Artifact.Path {
		t.Fatal("rebuild should produce a new timestamped artifact")
	}
	if first.Artifact.Digest != second.Artifact.Digest {
		t.Errorf("digests differ: %s vs %s", first.Artifact.Digest, second.Artifact.Digest)
	}

	totem := readModel(t, p.path("pack", "assets", "minecraft", "models", "item", "totem_of_undying.json"))
	if len(totem.Overrides) != 2 {
		t.Errorf("rebuild must start from a reset tree, got %d overrides", len(totem.Overrides))
	}
}

func TestPipeline_FailingOverlayLeavesNoArtifact(t *testing.T) {
	p := setupProject(t)
	req := p.buildRequest(t, p.writeManifest(t, fullManifest+`
[[overlay]]
item = "totem_of_undying"
name = "ghost_totem"
texture = "ghost_totem.png"
`))

	_, err := p.engine.Build(context.Background(), req)
	if !errors.Is(err, packerr.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}

	if _, err := os.Stat(p.path("dist")); err == nil {
		entries, _ := os.ReadDir(p.path("dist"))
		if len(entries) != 0 {
			t.Errorf("no artifact should be written, found %d entries", len(entries))
		}
	}
	if _, err := os.Stat(p.path("pack", "pack.mcmeta")); err != nil {
		t.Errorf("pack.mcmeta must survive a failed build: %v", err)
	}
}
