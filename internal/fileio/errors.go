package fileio

import (
	"errors"
	"fmt"

	"github.com/roach88/gko/internal/digest"
)

// ErrorKind categorizes fileio errors.
type ErrorKind string

const (
	// KindIO covers filesystem, archive and child-process failures.
	KindIO ErrorKind = "IO"

	// KindIntegrity indicates a digest mismatch during save.
	KindIntegrity ErrorKind = "INTEGRITY"

	// KindImport indicates a file that is neither a native dump nor a plain tree.
	KindImport ErrorKind = "IMPORT"
)

// Integrity failure causes.
var (
	ErrDumpMismatch     = errors.New("dump mismatch")
	ErrPostSaveMismatch = errors.New("post-save mismatch")
)

// Error is returned by every fileio operation.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op is the operation that failed ("save", "open", "import", "destroy").
	Op string

	// Path is the file or directory involved.
	Path string

	// Expected and Actual are the compared digests of an integrity failure.
	Expected digest.Digest
	Actual   digest.Digest

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.Op
	if e.Path != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	if e.Kind == KindIntegrity {
		return fmt.Sprintf("%s: %v: %s != %s", prefix, e.Err, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsIO returns true if err is an IO error.
// Uses errors.As to handle wrapped errors.
func IsIO(err error) bool {
	return isKind(err, KindIO)
}

// IsIntegrity returns true if err is an integrity error.
func IsIntegrity(err error) bool {
	return isKind(err, KindIntegrity)
}

// IsImport returns true if err is an import error.
func IsImport(err error) bool {
	return isKind(err, KindImport)
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newIOError(op, path string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

func newIntegrityError(op, path string, cause error, expected, actual digest.Digest) *Error {
	return &Error{Kind: KindIntegrity, Op: op, Path: path, Expected: expected, Actual: actual, Err: cause}
}

func newImportError(path string, err error) *Error {
	return &Error{Kind: KindImport, Op: "import", Path: path, Err: err}
}
