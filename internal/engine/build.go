package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danieljhkim/packsmith/internal/model"
	"github.com/danieljhkim/packsmith/internal/packerr"
	"github.com/danieljhkim/packsmith/internal/planner"
)

// Algorithm steps:
// 1. Require pack.mcmeta in the staging root
// 2. Reset and scaffold the staging tree
// 3. For each overlay in order: import the base item, merge, register
// 4. Package and digest the artifact
// 5. Publish (if requested)
//
// The context is checked between stages; a failed build leaves the tree as
// the last successful stage left it.
func (e *Engine) Build(ctx context.Context, req *BuildRequest) (*BuildResult, error) {
	start := e.clock.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.tree.CheckMetadata(e.paths.PackRoot); err != nil {
		return nil, err
	}
	if _, err := e.outputDir(req.OutputDir); err != nil {
		return nil, err
	}
	if req.Publish && e.publisher == nil {
		return nil, fmt.Errorf("%w: %w", packerr.ErrPublish, ErrNoPublisher)
	}

	if req.DryRun {
		return e.planBuild(req)
	}

	result := &BuildResult{Overlays: []OverlayResult{}}

	removed, err := e.Reset()
	if err != nil {
		return nil, err
	}
	result.Removed = removed

	if err := e.Scaffold(); err != nil {
		return nil, err
	}

	for _, item := range req.Overlays {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		overlay, err := e.buildOverlay(item, req.Force)
		if err != nil {
			return result, fmt.Errorf("overlay %s/%s: %w", item.ItemID, item.Overlay.Name, err)
		}
		result.Overlays = append(result.Overlays, *overlay)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	artifact, err := e.Package(ctx, &PackageRequest{
		ArtifactPrefix: req.ArtifactPrefix,
		OutputDir:      req.OutputDir,
	})
	if err != nil {
		return result, err
	}
	result.Artifact = artifact

	if req.Publish {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		url, err := e.Publish(ctx, artifact.Path, artifact.Digest)
		if err != nil {
			return result, err
		}
		result.URL = url
	}

	e.logger.Info("build complete",
		"overlays", len(result.Overlays),
		"artifact", artifact.Path,
		"size", humanize.Bytes(uint64(artifact.Size)),
		"elapsed", e.clock.Now().Sub(start).Round(time.Millisecond),
	)
	return result, nil
}

func (e *Engine) buildOverlay(item ItemOverlay, force bool) (*OverlayResult, error) {
	if _, err := e.ImportBaseItem(item.ItemID, item.IsBlock); err != nil {
		return nil, err
	}

	merged, err := e.MergeOverlay(item.ItemID, item.IsBlock, item.Overlay, force)
	if err != nil {
		return nil, err
	}

	index, err := e.RegisterOverride(item.ItemID, item.Overlay.Name)
	if err != nil {
		return nil, err
	}

	return &OverlayResult{
		Item:        item.ItemID,
		Name:        item.Overlay.Name,
		Index:       index,
		ModelPath:   merged.ModelPath,
		TexturePath: merged.TexturePath,
		Slot:        merged.Slot,
		Templated:   merged.Templated,
	}, nil
}

// planBuild plans every overlay against the current tree without writing.
// A real build resets first, so files staged by a previous build are
// reported as replacements rather than conflicts; only overlays that would
// collide with each other are conflicts.
func (e *Engine) planBuild(req *BuildRequest) (*BuildResult, error) {
	result := &BuildResult{DryRun: true, Overlays: []OverlayResult{}}

	names := make(map[string]string)
	counts := make(map[string]int)
	for _, item := range req.Overlays {
		if err := e.validateIDs(item.ItemID); err != nil {
			return nil, err
		}
		if _, seen := counts[item.ItemID]; !seen {
			existing, err := e.existingOverrides(item.ItemID, item.IsBlock)
			if err != nil {
				return nil, err
			}
			counts[item.ItemID] = existing
		}

		plan, err := planner.BuildMergePlan(e.fs, e.layout, e.library, &planner.MergeRequest{
			ItemID:      item.ItemID,
			IsBlock:     item.IsBlock,
			Name:        item.Overlay.Name,
			TexturePath: item.Overlay.TexturePath,
			ModelPath:   item.Overlay.ModelPath,
			Slot:        item.Overlay.Slot,
			Force:       true,
		})
		if err != nil {
			return nil, fmt.Errorf("overlay %s/%s: %w", item.ItemID, item.Overlay.Name, err)
		}

		if prev, ok := names[item.Overlay.Name]; ok {
			plan.AddConflict(planner.Conflict{
				Path:   e.layout.OverlayTexture(item.Overlay.Name),
				Reason: fmt.Sprintf("Overlay name already used for %s", prev),
			})
		}
		names[item.Overlay.Name] = item.ItemID

		counts[item.ItemID]++
		result.Plans = append(result.Plans, plan)
		result.Overlays = append(result.Overlays, OverlayResult{
			Item:        item.ItemID,
			Name:        item.Overlay.Name,
			Index:       counts[item.ItemID],
			ModelPath:   e.layout.OverlayModel(item.ItemID, item.Overlay.Name),
			TexturePath: e.layout.OverlayTexture(item.Overlay.Name),
			Slot:        item.Overlay.Slot,
			Templated:   item.Overlay.ModelPath == "",
		})
	}

	for _, plan := range result.Plans {
		if plan.HasConflicts() {
			return result, fmt.Errorf("%w: overlay %s: %s", packerr.ErrOverwrite, plan.Overlay, plan.Conflicts[0].Reason)
		}
	}
	return result, nil
}

// existingOverrides counts the rules the base library model already carries;
// an import stages them unchanged, so new rules are numbered after them.
func (e *Engine) existingOverrides(itemID string, isBlock bool) (int, error) {
	path := e.library.Model(itemID, isBlock)
	data, err := e.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: base model %s", packerr.ErrSourceNotFound, path)
		}
		return 0, fmt.Errorf("%w: failed to read %s: %v", packerr.ErrIO, path, err)
	}
	doc, err := model.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return len(doc.Overrides()), nil
}
