// Package archive extracts container files into workspace directories.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Extractor unpacks an archive into a directory, overwriting files that
// already exist there.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Supported tool names.
const (
	ToolSevenZip = "7za"
	ToolZip      = "zip"
)

// ValidTools lists the accepted values for New.
var ValidTools = []string{ToolSevenZip, ToolZip}

// New returns the extractor for tool. binary overrides the 7za executable.
func New(tool, binary string, logger *slog.Logger) (Extractor, error) {
	switch tool {
	case ToolSevenZip, "":
		return &SevenZip{Binary: binary, Logger: logger}, nil
	case ToolZip:
		return Zip{}, nil
	default:
		return nil, fmt.Errorf("unknown archive tool %q: must be one of %v", tool, ValidTools)
	}
}

// SevenZip runs the 7-Zip command line tool as a child process:
//
//	7za x -bd -y -o<destDir> <archivePath>
//
// -bd disables the progress indicator and -y answers overwrite prompts.
type SevenZip struct {
	Binary string // defaults to "7za" on PATH
	Logger *slog.Logger
}

// Extract implements Extractor. The child process is killed when ctx is done.
func (z *SevenZip) Extract(ctx context.Context, archivePath, destDir string) error {
	binary := z.Binary
	if binary == "" {
		binary = ToolSevenZip
	}
	args := []string{"x", "-bd", "-y", "-o" + destDir, archivePath}

	logger := z.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("archive: running extractor", "binary", binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, binary, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(output.String())
		if msg != "" {
			return fmt.Errorf("extract %s: %w: %s", archivePath, err, msg)
		}
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	return nil
}

// Zip extracts zip archives in-process.
type Zip struct{}

// ErrUnsafePath is returned for archive entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Extract implements Extractor.
func (Zip) Extract(ctx context.Context, archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	root, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("extract %s: %w: %s", archivePath, ErrUnsafePath, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", archivePath, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %s: %w", archivePath, f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
