package fileio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/gko/internal/archive"
	"github.com/roach88/gko/internal/metrics"
	"github.com/roach88/gko/internal/settings"
)

const (
	// ContainerExt is the extension of container files.
	ContainerExt = ".gko"

	// PathSentinel replaces path separators in workspace names.
	PathSentinel = "%"

	// SwapSettingsName is the settings record written into each workspace.
	SwapSettingsName = "swap"

	// OriginalPathKey records the container a workspace was extracted from.
	OriginalPathKey = "originalPath"

	backupStampLayout = "_2006-01-02_15-04-05"
)

// SwapManager extracts containers into workspaces under the data directory.
//
// Two container paths that escape to the same workspace name share a
// workspace. This is a known limitation.
type SwapManager struct {
	dataDir   string
	extractor archive.Extractor
	opts      options
}

// NewSwapManager creates a manager rooted at dataDir.
func NewSwapManager(dataDir string, extractor archive.Extractor, opts ...Option) *SwapManager {
	return &SwapManager{dataDir: dataDir, extractor: extractor, opts: applyOptions(opts)}
}

// WorkspaceName flattens containerPath into a single path element: every
// separator becomes PathSentinel and the container extension is dropped.
func WorkspaceName(containerPath string) string {
	flat := strings.ReplaceAll(containerPath, string(filepath.Separator), PathSentinel)
	return strings.TrimSuffix(flat, ContainerExt)
}

// BackupName names the backup of containerPath at modification time mtime.
// The name is deterministic per container version.
func BackupName(containerPath string, mtime time.Time) string {
	return WorkspaceName(containerPath) + mtime.Format(backupStampLayout) + filepath.Ext(containerPath)
}

// WorkspacePath returns where containerPath is extracted.
func (m *SwapManager) WorkspacePath(containerPath string) string {
	return filepath.Join(m.dataDir, WorkspaceName(containerPath))
}

// Open backs up the container (once per modification time), extracts it
// into its workspace and returns the workspace path.
func (m *SwapManager) Open(ctx context.Context, containerPath string) (string, error) {
	logger := m.opts.logger.With("path", containerPath)

	info, err := os.Stat(containerPath)
	if err != nil {
		return "", newIOError("open", containerPath, err)
	}
	if info.IsDir() {
		return "", newIOError("open", containerPath, errors.New("container is a directory"))
	}

	workspacePath := m.WorkspacePath(containerPath)
	backupPath := filepath.Join(m.dataDir, BackupName(containerPath, info.ModTime()))

	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return "", newIOError("open", containerPath, err)
	}

	created, err := copyExclusive(containerPath, backupPath)
	if err != nil {
		return "", newIOError("open", containerPath, fmt.Errorf("backup: %w", err))
	}
	if created {
		m.opts.metrics.ObserveBackup(metrics.BackupCreated)
		logger.Info("open: backup created", "backup", backupPath)
	} else {
		m.opts.metrics.ObserveBackup(metrics.BackupSkipped)
		logger.Debug("open: backup already present", "backup", backupPath)
	}

	if err := os.MkdirAll(workspacePath, 0o755); err != nil {
		return "", newIOError("open", containerPath, err)
	}
	err = m.extractor.Extract(ctx, containerPath, workspacePath)
	m.opts.metrics.ObserveExtraction(err)
	if err != nil {
		return "", newIOError("open", containerPath, err)
	}

	_, err = settings.Open(settings.Options{
		Name:     SwapSettingsName,
		Dir:      workspacePath,
		Defaults: map[string]any{OriginalPathKey: containerPath},
	})
	if err != nil {
		return "", newIOError("open", containerPath, err)
	}

	logger.Info("open: workspace ready", "workspace", workspacePath)
	return workspacePath, nil
}

// OriginalPath returns the container path recorded in a workspace.
func OriginalPath(workspacePath string) (string, error) {
	if _, err := os.Stat(filepath.Join(workspacePath, SwapSettingsName+".json")); err != nil {
		return "", newIOError("open", workspacePath, err)
	}
	rec, err := settings.Open(settings.Options{Name: SwapSettingsName, Dir: workspacePath})
	if err != nil {
		return "", newIOError("open", workspacePath, err)
	}
	original, ok := rec.String(OriginalPathKey)
	if !ok || original == "" {
		return "", newIOError("open", workspacePath, errors.New("workspace has no original path"))
	}
	return original, nil
}

// copyExclusive copies src to dst only if dst does not exist. The existence
// check and creation are a single O_EXCL open. created is false when dst was
// already there. A partially written dst is removed.
func copyExclusive(src, dst string) (created bool, err error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
		}
	}()

	in, err := os.Open(src)
	if err != nil {
		out.Close()
		return false, err
	}
	defer in.Close()

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return false, err
	}
	if err = out.Close(); err != nil {
		return false, err
	}
	return true, nil
}
