package fileio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/roach88/gko/internal/digest"
	"github.com/roach88/gko/internal/metrics"
)

// Temp-file suffixes of the two independent dumps.
const (
	tempSuffix1 = ".swp1"
	tempSuffix2 = ".swp2"

	tempStampLayout = "2006-01-02T15-04-05.000Z"
)

// SaveResult describes a committed save.
type SaveResult struct {
	Path string        `json:"path"`
	Hash digest.Digest `json:"hash"`
}

// Saver writes documents to their target files with dual-write verification.
//
// Precondition: concurrent saves to the same path must be serialised by the
// caller. Saves to different paths may run concurrently.
type Saver struct {
	opts options
}

// NewSaver creates a Saver.
func NewSaver(opts ...Option) *Saver {
	return &Saver{opts: applyOptions(opts)}
}

// Save dumps db to path.
//
// Protocol:
//  1. Derive two temp paths next to path, unique per call.
//  2. Dump db to both, independently.
//  3. Digest both dumps.
//  4. On mismatch fail with ErrDumpMismatch; path is untouched and both temp
//     files stay on disk for inspection.
//  5. Copy the first dump onto path and delete both temp files. If the copy
//     fails both temp files stay on disk, since path may be partly written.
//  6. Digest path again.
//  7. On mismatch fail with ErrPostSaveMismatch. path has already been
//     overwritten at this point.
func (s *Saver) Save(ctx context.Context, db Dumper, path string) (result SaveResult, err error) {
	start := time.Now()
	logger := s.opts.logger.With("path", path)
	outcome := metrics.SaveOK
	defer func() {
		if err != nil {
			outcome = saveOutcome(err)
		}
		s.opts.metrics.ObserveSave(outcome, time.Since(start))
	}()

	temps := s.tempPaths(path)
	logger.Debug("save: dumping", "temp1", temps[0], "temp2", temps[1])

	if err := runPair(func(i int) error { return DumpToFile(ctx, db, temps[i]) }); err != nil {
		removeAll(temps[:]...)
		return SaveResult{}, newIOError("save", path, err)
	}

	var hashes [2]digest.Digest
	err = runPair(func(i int) error {
		h, err := digest.File(temps[i])
		hashes[i] = h
		return err
	})
	if err != nil {
		removeAll(temps[:]...)
		return SaveResult{}, newIOError("save", path, err)
	}

	if hashes[0] != hashes[1] {
		logger.Error("save: dumps differ, target left untouched",
			"hash1", hashes[0], "hash2", hashes[1],
			"temp1", temps[0], "temp2", temps[1])
		return SaveResult{}, newIntegrityError("save", path, ErrDumpMismatch, hashes[0], hashes[1])
	}

	if err := s.opts.commit(temps[0], path); err != nil {
		logger.Error("save: commit failed, dumps kept for recovery",
			"error", err, "temp1", temps[0], "temp2", temps[1])
		return SaveResult{}, newIOError("save", path, err)
	}
	if err := errors.Join(os.Remove(temps[0]), os.Remove(temps[1])); err != nil {
		return SaveResult{}, newIOError("save", path, err)
	}

	final, err := digest.File(path)
	if err != nil {
		return SaveResult{}, newIOError("save", path, err)
	}
	if final != hashes[0] {
		logger.Error("save: committed file does not match dump", "hash", hashes[0], "final", final)
		return SaveResult{}, newIntegrityError("save", path, ErrPostSaveMismatch, hashes[0], final)
	}

	logger.Info("save: committed", "hash", final)
	return SaveResult{Path: path, Hash: final}, nil
}

// DumpToFile writes one dump of db to path, replacing any existing file.
func DumpToFile(ctx context.Context, db Dumper, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("dump to %s: %w", path, err)
	}
	if err := db.Dump(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("dump to %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("dump to %s: sync: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("dump to %s: close: %w", path, err)
	}
	return nil
}

// tempPaths derives the pair of temp paths for one save call. The timestamp
// keeps names readable; the token keeps them unique within and across
// processes.
func (s *Saver) tempPaths(path string) [2]string {
	base := fmt.Sprintf("%s.%s.%s", path, s.opts.now().UTC().Format(tempStampLayout), s.opts.tokens.Generate())
	return [2]string{base + tempSuffix1, base + tempSuffix2}
}

// runPair starts fn(0) and fn(1) concurrently and waits for both.
func runPair(fn func(i int) error) error {
	var wg sync.WaitGroup
	var errs [2]error
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(i)
		}()
	}
	wg.Wait()
	return errors.Join(errs[:]...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: sync: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copy to %s: close: %w", dst, err)
	}
	return nil
}

func removeAll(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func saveOutcome(err error) string {
	switch {
	case errors.Is(err, ErrDumpMismatch):
		return metrics.SaveDumpMismatch
	case errors.Is(err, ErrPostSaveMismatch):
		return metrics.SavePostMismatch
	default:
		return metrics.SaveError
	}
}
