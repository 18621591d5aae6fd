package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/danieljhkim/packsmith/internal/archive"
	"github.com/danieljhkim/packsmith/internal/config"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

// Package zips the staging tree into <output>/<prefix>-<timestamp>.zip and
// digests it. Top-level files of the pack root (pack.mcmeta, pack.png) go to
// the archive root; the assets folder keeps its relative layout.
func (e *Engine) Package(ctx context.Context, req *PackageRequest) (*PackageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.tree.CheckMetadata(e.paths.PackRoot); err != nil {
		return nil, err
	}

	outputDir, err := e.outputDir(req.OutputDir)
	if err != nil {
		return nil, err
	}

	loose, err := e.looseFiles()
	if err != nil {
		return nil, err
	}

	if err := e.fs.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory: %v", packerr.ErrIO, err)
	}

	artifact, err := archive.Package(e.fs, archive.Spec{
		LooseFiles: loose,
		AssetRoot:  e.layout.AssetsDir(),
		Output:     filepath.Join(outputDir, e.artifactName(req.ArtifactPrefix)),
	})
	if err != nil {
		return nil, err
	}

	digest, err := e.Digest(artifact.Path)
	if err != nil {
		return nil, err
	}

	e.logger.Info("packaged artifact",
		"path", artifact.Path,
		"entries", len(artifact.Entries),
		"size", humanize.Bytes(uint64(artifact.Size)),
	)
	return &PackageResult{
		Path:    artifact.Path,
		Entries: artifact.Entries,
		Size:    artifact.Size,
		Digest:  digest,
	}, nil
}

// outputDir returns the artifact directory for an optional override. It
// must lie outside the pack root: a reset would delete earlier artifacts and
// the next package would archive them.
func (e *Engine) outputDir(override string) (string, error) {
	dir := e.paths.OutputDir
	if override != "" {
		dir = override
	}
	if config.Within(e.paths.PackRoot, dir) {
		return "", fmt.Errorf("%w: output directory %s is inside pack root %s", ErrValidation, dir, e.paths.PackRoot)
	}
	return dir, nil
}

// Digest returns the lowercase hex SHA-256 of the file at path.
func (e *Engine) Digest(path string) (string, error) {
	digest, err := e.hasher.HashFile(path)
	if err != nil {
		return "", err
	}
	e.logger.Debug("computed digest", "path", path, "sha256", digest)
	return digest, nil
}

// Publish uploads the artifact at path and returns its link. digest may be
// empty, in which case it is computed first.
func (e *Engine) Publish(ctx context.Context, path, digest string) (string, error) {
	if e.publisher == nil {
		return "", fmt.Errorf("%w: %w", packerr.ErrPublish, ErrNoPublisher)
	}
	if digest == "" {
		d, err := e.Digest(path)
		if err != nil {
			return "", err
		}
		digest = d
	}

	url, err := e.publisher.Publish(ctx, path, filepath.Base(path), digest)
	if err != nil {
		return "", err
	}
	e.logger.Info("published artifact", "path", path, "url", url)
	return url, nil
}

// looseFiles lists the regular files directly under the pack root.
func (e *Engine) looseFiles() ([]string, error) {
	entries, err := e.fs.ReadDir(e.paths.PackRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read pack root: %v", packerr.ErrIO, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.Mode().IsRegular() {
			files = append(files, filepath.Join(e.paths.PackRoot, entry.Name()))
		}
	}
	return files, nil
}
