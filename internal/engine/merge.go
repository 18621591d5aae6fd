package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/model"
	"github.com/danieljhkim/packsmith/internal/packerr"
	"github.com/danieljhkim/packsmith/internal/planner"
)

// Algorithm steps:
// 1. Build the merge plan (validates ids and sources, detects collisions)
// 2. Refuse conflicting plans before touching the tree
// 3. Execute operations, journaling every file created or replaced
// 4. On failure, undo the journal so no half-merged overlay remains
func (e *Engine) MergeOverlay(itemID string, isBlock bool, overlay Overlay, force bool) (*MergeResult, error) {
	plan, err := planner.BuildMergePlan(e.fs, e.layout, e.library, &planner.MergeRequest{
		ItemID:      itemID,
		IsBlock:     isBlock,
		Name:        overlay.Name,
		TexturePath: overlay.TexturePath,
		ModelPath:   overlay.ModelPath,
		Slot:        overlay.Slot,
		Force:       force,
	})
	if err != nil {
		if errors.Is(err, packerr.ErrSourceNotFound) || errors.Is(err, packerr.ErrIO) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	result := &MergeResult{Plan: plan}
	if plan.HasConflicts() {
		first := plan.Conflicts[0]
		return result, fmt.Errorf("%w: %s: %s (%d conflicts)", packerr.ErrOverwrite, first.Path, first.Reason, len(plan.Conflicts))
	}

	j := newJournal(e.fs)
	for _, op := range plan.Operations {
		if err := j.record(op.DestPath, op.Replaces); err != nil {
			_ = j.rollback()
			return result, err
		}
		if err := e.executeOperation(op, result); err != nil {
			if rbErr := j.rollback(); rbErr != nil {
				e.logger.Warn("rollback incomplete", "overlay", overlay.Name, "err", rbErr)
			}
			return result, err
		}
	}

	e.logger.Debug("merged overlay",
		"item", itemID,
		"overlay", overlay.Name,
		"slot", result.Slot,
		"templated", result.Templated,
	)
	return result, nil
}

// executeOperation executes a single operation.
func (e *Engine) executeOperation(op planner.Operation, result *MergeResult) error {
	switch op.Type {
	case planner.OpCopyTexture:
		if err := e.executeCopyTexture(op); err != nil {
			return err
		}
		result.TexturePath = op.DestPath
	case planner.OpCopyModel, planner.OpTemplateModel:
		slot, err := e.executeWriteModel(op)
		if err != nil {
			return err
		}
		result.ModelPath = op.DestPath
		result.Slot = slot
		result.Templated = op.Type == planner.OpTemplateModel
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
	return nil
}

// executeCopyTexture stages the texture through a temp file and rename, so
// the destination is either the old file or the complete new one.
func (e *Engine) executeCopyTexture(op planner.Operation) error {
	data, err := e.fs.ReadFile(op.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: overlay texture %s", packerr.ErrSourceNotFound, op.SourcePath)
		}
		return fmt.Errorf("%w: failed to read texture: %v", packerr.ErrIO, err)
	}
	if err := e.fs.AtomicWrite(op.DestPath, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to stage texture: %v", packerr.ErrIO, err)
	}
	return nil
}

// executeWriteModel loads the overlay model (or the base model as template),
// points the selected texture slot at the staged texture and writes the
// result to the overlay model path.
func (e *Engine) executeWriteModel(op planner.Operation) (string, error) {
	data, err := e.fs.ReadFile(op.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: model %s", packerr.ErrSourceNotFound, op.SourcePath)
		}
		return "", fmt.Errorf("%w: failed to read model: %v", packerr.ErrIO, err)
	}

	doc, err := model.Parse(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op.SourcePath, err)
	}
	slot, err := doc.RedirectTexture(op.Slot, op.TextureRef)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op.SourcePath, err)
	}
	out, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("%w: %v", packerr.ErrMalformedDocument, err)
	}

	if err := e.fs.AtomicWrite(op.DestPath, out, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write model: %v", packerr.ErrIO, err)
	}
	return slot, nil
}

// journal remembers what a merge changed so a failure can be undone.
type journal struct {
	fs       fsops.FS
	created  []string
	replaced []backup
}

type backup struct {
	path string
	data []byte
	mode os.FileMode
}

func newJournal(fs fsops.FS) *journal {
	return &journal{fs: fs}
}

// record must be called before path is written.
func (j *journal) record(path string, replaces bool) error {
	if !replaces {
		j.created = append(j.created, path)
		return nil
	}
	info, err := j.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: failed to stat %s: %v", packerr.ErrIO, path, err)
	}
	data, err := j.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to back up %s: %v", packerr.ErrIO, path, err)
	}
	j.replaced = append(j.replaced, backup{path: path, data: data, mode: info.Mode().Perm()})
	return nil
}

// rollback removes created files and restores replaced ones, newest first.
func (j *journal) rollback() error {
	var errs []error
	for i := len(j.created) - 1; i >= 0; i-- {
		if err := j.fs.Remove(j.created[i]); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	for i := len(j.replaced) - 1; i >= 0; i-- {
		b := j.replaced[i]
		if err := j.fs.AtomicWrite(b.path, b.data, b.mode); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
