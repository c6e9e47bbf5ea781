package fileio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/gko/internal/docstore"
)

// ErrInvalidID is returned for ids that are empty or not a single path element.
var ErrInvalidID = errors.New("invalid document id")

// Destroyer removes documents from the data directory.
type Destroyer struct {
	dataDir string
	opts    options
}

// NewDestroyer creates a Destroyer rooted at dataDir.
func NewDestroyer(dataDir string, opts ...Option) *Destroyer {
	return &Destroyer{dataDir: dataDir, opts: applyOptions(opts)}
}

// WindowStatePath is the window-state side file of document id.
func (d *Destroyer) WindowStatePath(id string) string {
	return filepath.Join(d.dataDir, fmt.Sprintf("window-state-%s.json", id))
}

// Destroy deletes the window-state side file of id, ignoring any failure,
// then destroys the store. Only the store outcome is returned.
func (d *Destroyer) Destroy(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return newIOError("destroy", id, err)
	}
	if err := ctx.Err(); err != nil {
		return newIOError("destroy", id, err)
	}

	side := d.WindowStatePath(id)
	if err := os.Remove(side); err != nil {
		d.opts.logger.Debug("destroy: window state not removed", "path", side, "error", err)
	}

	storePath := filepath.Join(d.dataDir, id)
	if err := docstore.Destroy(storePath); err != nil {
		return newIOError("destroy", storePath, err)
	}
	d.opts.logger.Info("destroy: store removed", "id", id, "store", storePath)
	return nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
