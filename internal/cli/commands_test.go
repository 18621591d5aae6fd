package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/danieljhkim/packsmith/internal/engine"
	"github.com/danieljhkim/packsmith/internal/packerr"
	"github.com/danieljhkim/packsmith/internal/state"
)

// testProject is a packsmith project laid out in a temp directory.
type testProject struct {
	dir      string
	config   string
	manifest string
}

func (p *testProject) path(parts ...string) string {
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

// setupProject creates a base library, a staging root with pack.mcmeta, two
// overlays, a manifest and a config file pointing at all of them.
func setupProject(t *testing.T) *testProject {
	t.Helper()
	p := &testProject{dir: t.TempDir()}

	writeFile(t, p.path("base", "assets", "minecraft", "models", "item", "totem_of_undying.json"),
		`{"parent":"item/generated","textures":{"layer0":"item/totem_of_undying"}}`)
	writeFile(t, p.path("pack", "pack.mcmeta"), `{"pack":{"pack_format":15,"description":"test"}}`)
	writeFile(t, p.path("overlays", "wither_totem.png"), "wither-png")
	writeFile(t, p.path("overlays", "wither_totem.json"),
		`{"parent":"item/generated","textures":{"layer0":"item/totem_of_undying"}}`)
	writeFile(t, p.path("overlays", "py_totem.png"), "py-png")

	p.manifest = p.path("overlays", "overlays.toml")
	writeFile(t, p.manifest, `
[[overlay]]
item = "totem_of_undying"
name = "wither_totem"
texture = "wither_totem.png"
model = "wither_totem.json"

[[overlay]]
item = "totem_of_undying"
name = "py_totem"
texture = "py_totem.png"
`)

	p.config = p.path("packsmith.toml")
	writeFile(t, p.config, fmt.Sprintf(`
base_root = %q
pack_root = %q
output_dir = %q
artifact_prefix = "TestPack"
log_level = "error"
`, p.path("base"), p.path("pack"), p.path("dist")))

	return p
}

// resetFlags restores every flag to its default so state from one Execute
// does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes packsmith with args against project p and returns stdout.
func runCLI(t *testing.T, p *testProject, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	oldStdout, oldColor := os.Stdout, color.Output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout, color.Output = w, w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	rootCmd.SetArgs(append(args, "--config", p.config))
	execErr := rootCmd.Execute()

	_ = w.Close()
	os.Stdout, color.Output = oldStdout, oldColor
	return <-done, execErr
}

func decodeJSON(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v, output: %q", err, out)
	}
}

func TestBuildCommand(t *testing.T) {
	p := setupProject(t)

	out, err := runCLI(t, p, "build", p.manifest, "--json")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var result engine.BuildResult
	decodeJSON(t, out, &result)

	if len(result.Overlays) != 2 {
		t.Fatalf("expected 2 overlays, got %d", len(result.Overlays))
	}
	for i, o := range result.Overlays {
		if o.Index != i+1 {
			t.Errorf("overlay %s: custom_model_data = %d, want %d", o.Name, o.Index, i+1)
		}
	}
	if result.Artifact == nil {
		t.Fatal("expected an artifact")
	}
	if !strings.HasPrefix(filepath.Base(result.Artifact.Path), "TestPack-") {
		t.Errorf("unexpected artifact name %s", result.Artifact.Path)
	}
	if _, err := os.Stat(result.Artifact.Path); err != nil {
		t.Errorf("artifact not written: %v", err)
	}

	base, err := os.ReadFile(p.path("pack", "assets", "minecraft", "models", "item", "totem_of_undying.json"))
	if err != nil {
		t.Fatalf("failed to read staged base model: %v", err)
	}
	if !strings.Contains(string(base), `"model": "item/totem_of_undying/py_totem"`) {
		t.Errorf("override for py_totem missing from base model:\n%s", base)
	}

	out, err = runCLI(t, p, "digest", result.Artifact.Path, "--json")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	var digest map[string]string
	decodeJSON(t, out, &digest)
	if digest["sha256"] != result.Artifact.Digest {
		t.Errorf("digest = %s, build reported %s", digest["sha256"], result.Artifact.Digest)
	}
}

func TestBuildCommand_DryRun(t *testing.T) {
	p := setupProject(t)

	out, err := runCLI(t, p, "build", p.manifest, "--dry-run", "--json")
	if err != nil {
		t.Fatalf("build --dry-run failed: %v", err)
	}

	var result engine.BuildResult
	decodeJSON(t, out, &result)
	if !result.DryRun || len(result.Plans) != 2 {
		t.Errorf("expected a dry run with 2 plans, got %+v", result)
	}
	if _, err := os.Stat(p.path("dist")); !os.IsNotExist(err) {
		t.Errorf("dry run must not create the output directory")
	}
	if _, err := os.Stat(p.path("pack", "assets")); !os.IsNotExist(err) {
		t.Errorf("dry run must not touch the staging tree")
	}
}

func TestBuildCommand_MissingManifest(t *testing.T) {
	p := setupProject(t)

	_, err := runCLI(t, p, "build", p.path("nope.toml"))
	if !errors.Is(err, packerr.ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestStagingCommands(t *testing.T) {
	p := setupProject(t)

	if _, err := runCLI(t, p, "scaffold"); err != nil {
		t.Fatalf("scaffold failed: %v", err)
	}

	out, err := runCLI(t, p, "import", "totem_of_undying", "--json")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var imported engine.ImportResult
	decodeJSON(t, out, &imported)
	if !imported.Copied {
		t.Error("first import should copy the base model")
	}

	_, err = runCLI(t, p, "merge", "totem_of_undying", "wither_totem",
		"--texture", p.path("overlays", "wither_totem.png"),
		"--model", p.path("overlays", "wither_totem.json"))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	out, err = runCLI(t, p, "register", "totem_of_undying", "wither_totem", "--json")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	var registered map[string]interface{}
	decodeJSON(t, out, &registered)
	if registered["custom_model_data"] != float64(1) {
		t.Errorf("custom_model_data = %v, want 1", registered["custom_model_data"])
	}

	staged, err := os.ReadFile(p.path("pack", "assets", "minecraft", "models", "item", "totem_of_undying", "wither_totem.json"))
	if err != nil {
		t.Fatalf("overlay model not staged: %v", err)
	}
	if !strings.Contains(string(staged), `"layer0": "item/wither_totem"`) {
		t.Errorf("texture slot not redirected:\n%s", staged)
	}

	out, err = runCLI(t, p, "reset", "--json")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	var reset map[string]interface{}
	decodeJSON(t, out, &reset)
	if _, err := os.Stat(p.path("pack", "pack.mcmeta")); err != nil {
		t.Errorf("reset must keep pack.mcmeta: %v", err)
	}
	if _, err := os.Stat(p.path("pack", "assets")); !os.IsNotExist(err) {
		t.Error("reset should remove assets")
	}
}

func TestMergeCommand_Force(t *testing.T) {
	p := setupProject(t)
	args := []string{"merge", "totem_of_undying", "py_totem", "--texture", p.path("overlays", "py_totem.png")}

	if _, err := runCLI(t, p, args...); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}

	_, err := runCLI(t, p, args...)
	if !errors.Is(err, packerr.ErrOverwrite) {
		t.Fatalf("expected ErrOverwrite on second merge, got %v", err)
	}

	if _, err := runCLI(t, p, append(args, "--force")...); err != nil {
		t.Errorf("merge --force failed: %v", err)
	}
}

func TestInspectCommand(t *testing.T) {
	p := setupProject(t)

	out, err := runCLI(t, p, "build", p.manifest, "--json")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	var result engine.BuildResult
	decodeJSON(t, out, &result)

	extractDir := p.path("extracted")
	out, err = runCLI(t, p, "inspect", result.Artifact.Path, "--extract", extractDir, "--json")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var inspected struct {
		SHA256  string          `json:"sha256"`
		Entries []artifactEntry `json:"entries"`
	}
	decodeJSON(t, out, &inspected)
	if inspected.SHA256 != result.Artifact.Digest {
		t.Errorf("inspect digest = %s, want %s", inspected.SHA256, result.Artifact.Digest)
	}
	if len(inspected.Entries) != len(result.Artifact.Entries) {
		t.Fatalf("inspect listed %d entries, artifact has %d", len(inspected.Entries), len(result.Artifact.Entries))
	}

	got, err := os.ReadFile(filepath.Join(extractDir, "assets", "minecraft", "textures", "item", "py_totem.png"))
	if err != nil {
		t.Fatalf("extracted texture missing: %v", err)
	}
	if string(got) != "py-png" {
		t.Errorf("extracted texture = %q", got)
	}
}

func TestPublishCommand(t *testing.T) {
	p := setupProject(t)

	var mu sync.Mutex
	var gotDigest string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotDigest = r.Header.Get("X-Content-SHA256")
		mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = fmt.Fprintf(w, `{"url":"https://cdn.example%s"}`, r.URL.Path)
	}))
	defer srv.Close()
	t.Setenv("PACKSMITH_PUBLISH_ENDPOINT", srv.URL+"/packs")

	out, err := runCLI(t, p, "build", p.manifest, "--publish", "--json")
	if err != nil {
		t.Fatalf("build --publish failed: %v", err)
	}
	var result engine.BuildResult
	decodeJSON(t, out, &result)

	want := "https://cdn.example/packs/" + filepath.Base(result.Artifact.Path)
	if result.URL != want {
		t.Errorf("URL = %q, want %q", result.URL, want)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotDigest != result.Artifact.Digest {
		t.Errorf("server received digest %q, want %q", gotDigest, result.Artifact.Digest)
	}
}

func TestPublishCommand_NotConfigured(t *testing.T) {
	p := setupProject(t)
	writeFile(t, p.path("dist", "manual.zip"), "zip")

	_, err := runCLI(t, p, "publish", p.path("dist", "manual.zip"))
	if !errors.Is(err, packerr.ErrPublish) {
		t.Errorf("expected ErrPublish, got %v", err)
	}
}

func TestHistoryCommand(t *testing.T) {
	p := setupProject(t)

	out, err := runCLI(t, p, "history", "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var empty []state.BuildRecord
	decodeJSON(t, out, &empty)
	if len(empty) != 0 {
		t.Fatalf("expected no builds before the first build, got %d", len(empty))
	}

	var builds []engine.BuildResult
	for i := 0; i < 2; i++ {
		out, err := runCLI(t, p, "build", p.manifest, "--json")
		if err != nil {
			t.Fatalf("build %d failed: %v", i, err)
		}
		var result engine.BuildResult
		decodeJSON(t, out, &result)
		builds = append(builds, result)
	}

	if _, err := runCLI(t, p, "build", p.manifest, "--dry-run", "--json"); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	out, err = runCLI(t, p, "history", "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var records []state.BuildRecord
	decodeJSON(t, out, &records)
	if len(records) != 2 {
		t.Fatalf("expected 2 recorded builds (dry runs are not recorded), got %d", len(records))
	}
	if records[0].Digest != builds[1].Artifact.Digest {
		t.Errorf("newest record digest = %s, want %s", records[0].Digest, builds[1].Artifact.Digest)
	}
	if len(records[0].Overlays) != 2 || records[0].Overlays[1].CustomModelData != 2 {
		t.Errorf("unexpected overlays %+v", records[0].Overlays)
	}

	out, err = runCLI(t, p, "history", "--limit", "1", "--item", "compass", "--json")
	if err != nil {
		t.Fatalf("history --limit failed: %v", err)
	}
	records = nil
	decodeJSON(t, out, &records)
	if len(records) != 1 || len(records[0].Overlays) != 0 {
		t.Errorf("expected one build with no compass overlays, got %+v", records)
	}
}

func TestBuildCommand_RelativeArguments(t *testing.T) {
	p := setupProject(t)
	t.Chdir(p.dir)

	out, err := runCLI(t, p, "build", filepath.Join("overlays", "overlays.toml"), "--json")
	if err != nil {
		t.Fatalf("build with a relative manifest failed: %v", err)
	}
	var result engine.BuildResult
	decodeJSON(t, out, &result)

	rel, err := filepath.Rel(p.dir, result.Artifact.Path)
	if err != nil {
		t.Fatalf("artifact outside project: %v", err)
	}
	out, err = runCLI(t, p, "digest", rel, "--json")
	if err != nil {
		t.Fatalf("digest with a relative path failed: %v", err)
	}
	var digest map[string]string
	decodeJSON(t, out, &digest)
	if digest["sha256"] != result.Artifact.Digest {
		t.Errorf("digest = %s, want %s", digest["sha256"], result.Artifact.Digest)
	}
}
