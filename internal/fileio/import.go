package fileio

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/gko/internal/docstore"
	"github.com/roach88/gko/internal/outline"
)

// Import formats.
const (
	FormatNative = "native"
	FormatPlain  = "plain"
)

// headerSchema is the shape a first line must have to be read as a native
// record stream header. Other fields are allowed.
const headerSchema = `
#Header: {
	start_time: string
	db_info: {
		db_name: string
		...
	}
	...
}
`

// ImportResult describes an imported file.
type ImportResult struct {
	// ID is the generated document id. The store lives at StorePath.
	ID string `json:"id"`

	// Name is the display name derived from the file name.
	Name string `json:"name"`

	// DBName is the db_name of a native dump, or ID for a plain tree.
	DBName string `json:"db_name"`

	Format    string `json:"format"`
	StorePath string `json:"store_path"`

	// Document is the parsed tree of a plain import. It is nil for native
	// imports, whose records are already in the store.
	Document *outline.Node `json:"document,omitempty"`
}

// Importer classifies files and imports them into the data directory.
type Importer struct {
	dataDir string
	opts    options

	// cue contexts are not safe for concurrent use
	mu     sync.Mutex
	cueCtx *cue.Context
	header cue.Value
}

// NewImporter creates an Importer that places native stores under dataDir.
func NewImporter(dataDir string, opts ...Option) *Importer {
	cueCtx := cuecontext.New()
	schema := cueCtx.CompileString(headerSchema)
	return &Importer{
		dataDir: dataDir,
		opts:    applyOptions(opts),
		cueCtx:  cueCtx,
		header:  schema.LookupPath(cue.ParsePath("#Header")),
	}
}

// probe outcomes
type format int

const (
	formatNative format = iota
	formatPlain
)

// Import reads path and returns the imported document.
//
// The first line decides the format. A native header (an object with
// start_time and db_info.db_name) makes the whole file a record stream that
// is loaded into a fresh store. A first line that is an array, or that ends
// before its JSON value does, falls back to the plain tree format. Anything
// else is an ImportError.
func (im *Importer) Import(ctx context.Context, path string) (result ImportResult, err error) {
	defer func() {
		im.opts.metrics.ObserveImport(result.Format, err)
	}()

	first, err := readFirstLine(path)
	if err != nil {
		return ImportResult{}, newIOError("import", path, err)
	}

	kind, hdr, err := im.probe(first)
	if err != nil {
		im.opts.logger.Debug("import: unrecognised format", "path", path, "error", err)
		return ImportResult{}, newImportError(path, err)
	}

	switch kind {
	case formatNative:
		return im.importNative(ctx, path, hdr)
	default:
		return im.importPlain(path)
	}
}

// probe classifies the first line of a file.
func (im *Importer) probe(line []byte) (format, docstore.Header, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return formatPlain, docstore.Header{}, nil
		}
		return 0, docstore.Header{}, fmt.Errorf("first line: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return 0, docstore.Header{}, errors.New("first line: trailing data after JSON value")
	}

	switch raw[0] {
	case '[':
		return formatPlain, docstore.Header{}, nil
	case '{':
	default:
		return 0, docstore.Header{}, errors.New("first line: not a record stream header")
	}

	if err := im.validateHeader(raw); err != nil {
		return 0, docstore.Header{}, fmt.Errorf("first line: %w", err)
	}
	hdr, err := docstore.ParseHeader(raw)
	if err != nil {
		return 0, docstore.Header{}, err
	}
	return formatNative, hdr, nil
}

func (im *Importer) validateHeader(raw []byte) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	v := im.cueCtx.CompileBytes(raw)
	if err := v.Err(); err != nil {
		return err
	}
	return im.header.Unify(v).Validate(cue.Concrete(true))
}

func (im *Importer) importNative(ctx context.Context, path string, hdr docstore.Header) (ImportResult, error) {
	dbName := hdr.DBInfo.DBName
	id := im.generateID([]byte(dbName))
	storePath := filepath.Join(im.dataDir, id)
	logger := im.opts.logger.With("path", path, "id", id)

	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, newIOError("import", path, err)
	}
	defer f.Close()

	store, err := im.opts.opener(storePath)
	if err != nil {
		return ImportResult{}, newIOError("import", path, err)
	}
	if err := store.Load(ctx, f); err != nil {
		store.Close()
		if rmErr := docstore.Destroy(storePath); rmErr != nil {
			logger.Warn("import: cleanup failed", "store", storePath, "error", rmErr)
		}
		return ImportResult{}, newImportError(path, err)
	}
	if err := store.Close(); err != nil {
		return ImportResult{}, newIOError("import", path, err)
	}

	logger.Info("import: native dump loaded", "db_name", dbName, "store", storePath)
	return ImportResult{
		ID:        id,
		Name:      DisplayName(path),
		DBName:    dbName,
		Format:    FormatNative,
		StorePath: storePath,
	}, nil
}

func (im *Importer) importPlain(path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, newIOError("import", path, err)
	}
	id := im.generateID(data)

	doc, err := outline.FromPlainTree(data)
	if err != nil {
		return ImportResult{}, newImportError(path, err)
	}

	im.opts.logger.Info("import: plain tree parsed", "path", path, "id", id, "nodes", outline.Count(doc))
	return ImportResult{
		ID:        id,
		Name:      DisplayName(path),
		DBName:    id,
		Format:    FormatPlain,
		StorePath: filepath.Join(im.dataDir, id),
		Document:  doc,
	}, nil
}

// generateID returns hex(SHA-1(seed + current unix millis)).
func (im *Importer) generateID(seed []byte) string {
	h := sha1.New()
	h.Write(seed)
	h.Write([]byte(strconv.FormatInt(im.opts.now().UnixMilli(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// DisplayName is the file's base name without its extension, NFC-normalised.
func DisplayName(path string) string {
	base := filepath.Base(path)
	return norm.NFC.String(strings.TrimSuffix(base, filepath.Ext(base)))
}

func readFirstLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}
