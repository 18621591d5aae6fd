package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/packsmith/internal/clock"
	"github.com/danieljhkim/packsmith/internal/config"
	"github.com/danieljhkim/packsmith/internal/engine"
	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/hash"
	"github.com/danieljhkim/packsmith/internal/publish"
	"github.com/danieljhkim/packsmith/internal/state"
)

// runtime bundles what a command needs after configuration is resolved.
type runtime struct {
	cfg    *config.Config
	fs     *fsops.BillyFS
	logger *log.Logger
	engine *engine.Engine
	clock  clock.Clock
}

// loadConfig resolves configuration for cmd, letting flags the user passed
// override the config file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, path, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if path != "" {
		newLogger(cfg).Debug("loaded config", "path", path)
	}
	return cfg, nil
}

// newLogger creates the stderr logger for cfg.
func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: config.AppName,
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// newPublisher returns the configured publisher, or nil when no endpoint is set.
func newPublisher(fs fsops.FS, cfg *config.Config) (publish.Publisher, error) {
	if !cfg.PublishEnabled() {
		return nil, nil
	}
	p, err := publish.NewHTTPPublisher(fs, publish.HTTPConfig{
		Endpoint:   cfg.Publish.Endpoint,
		Token:      cfg.Publish.Token,
		MaxRetries: cfg.Publish.MaxRetries,
		Timeout:    cfg.Publish.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// newRuntime creates a new engine with real implementations of all dependencies.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	// Create real implementations
	fs := fsops.NewRealFS()
	logger := newLogger(cfg)
	hasher := hash.NewSHA256Hasher(fs, cfg.Hash.ChunkSize)
	clk := &clock.RealClock{}
	publisher, err := newPublisher(fs, cfg)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		fs:     fs,
		logger: logger,
		engine: engine.New(fs, hasher, clk, logger, publisher, cfg.Paths()),
		clock:  clk,
	}, nil
}

// history returns the build history store of the output directory.
func (rt *runtime) history() *state.FileHistoryStore {
	return state.NewFileHistoryStore(rt.fs, rt.cfg.OutputDir)
}

// recordBuild appends a successful build to the history. Failures are logged,
// the artifact is already written.
func (rt *runtime) recordBuild(manifestPath string, result *engine.BuildResult) {
	rec := state.NewBuildRecord(rt.clock.Now())
	rec.Manifest = manifestPath
	rec.Artifact = result.Artifact.Path
	rec.Digest = result.Artifact.Digest
	rec.Size = result.Artifact.Size
	rec.URL = result.URL
	for _, o := range result.Overlays {
		rec.Overlays = append(rec.Overlays, state.OverlayRecord{
			Item:            o.Item,
			Name:            o.Name,
			CustomModelData: o.Index,
		})
	}

	store := rt.history()
	if err := store.Append(rec); err != nil {
		rt.logger.Warn("failed to record build", "path", store.Path(), "err", err)
		return
	}
	rt.logger.Debug("recorded build", "id", rec.ID, "path", store.Path())
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// ReportError prints err to stderr in red.
func ReportError(err error) {
	_, _ = fmt.Fprintln(os.Stderr, formatError(err))
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
