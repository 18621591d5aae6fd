package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/danieljhkim/packsmith/internal/model"
	"github.com/danieljhkim/packsmith/internal/packerr"
	"github.com/danieljhkim/packsmith/internal/staging"
)

// RegisterOverride appends a rule selecting item/<itemID>/<overlayName> to the
// staged base model of itemID and returns its custom model data. The value is
// one more than the number of rules already present, so successive calls on
// the same item yield 1, 2, 3, ... and existing rules are never touched.
//
// Calls on the same item must not run concurrently.
func (e *Engine) RegisterOverride(itemID, overlayName string) (int, error) {
	if err := e.validateIDs(itemID, overlayName); err != nil {
		return 0, err
	}

	path := e.layout.ItemModel(itemID)
	data, err := e.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: staged base model %s", packerr.ErrSourceNotFound, path)
		}
		return 0, fmt.Errorf("%w: failed to read %s: %v", packerr.ErrIO, path, err)
	}

	doc, err := model.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	index, err := doc.AppendOverride(staging.ModelRef(itemID, overlayName))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", packerr.ErrMalformedDocument, err)
	}

	out, err := doc.Encode()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", packerr.ErrMalformedDocument, err)
	}
	if err := e.fs.AtomicWrite(path, out, 0644); err != nil {
		return 0, fmt.Errorf("%w: failed to write %s: %v", packerr.ErrIO, path, err)
	}

	e.logger.Debug("registered override", "item", itemID, "overlay", overlayName, "custom_model_data", index)
	return index, nil
}
