package engine

import (
	"fmt"

	"github.com/danieljhkim/packsmith/internal/packerr"
)

// ImportBaseItem stages the base model of itemID exactly once.
//
// The model is read from the block or item folder of the base library and
// always staged under models/item/<itemID>.json, next to the folder that will
// hold the item's overlay models. A second call finds the staged model and
// reports Copied=false.
func (e *Engine) ImportBaseItem(itemID string, isBlock bool) (*ImportResult, error) {
	if err := e.validateIDs(itemID); err != nil {
		return nil, err
	}

	dest := e.layout.ItemModel(itemID)
	result := &ImportResult{ItemID: itemID, ModelPath: dest}

	staged, err := e.fs.Exists(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check %s: %v", packerr.ErrIO, dest, err)
	}

	if !staged {
		src := e.library.Model(itemID, isBlock)
		exists, err := e.fs.Exists(src)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to check %s: %v", packerr.ErrIO, src, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: base model %s", packerr.ErrSourceNotFound, src)
		}
		if err := e.fs.Copy(src, dest); err != nil {
			return nil, fmt.Errorf("%w: failed to stage base model: %v", packerr.ErrIO, err)
		}
		result.Copied = true
	}

	if err := e.fs.MkdirAll(e.layout.OverlayDir(itemID), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create overlay folder: %v", packerr.ErrIO, err)
	}

	e.logger.Debug("imported base item", "item", itemID, "block", isBlock, "copied", result.Copied)
	return result, nil
}
