package docstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Stream format constants.
const (
	StreamVersion = "1"
	StreamDBType  = "sqlite3"

	// dumpBatchSize is the number of records per {"docs":[...]} line.
	dumpBatchSize = 50

	startTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Header is the first line of a record stream.
// Field order matters: start_time must directly precede db_info.
type Header struct {
	Version   string `json:"version"`
	DBType    string `json:"db_type"`
	StartTime string `json:"start_time"`
	DBInfo    Info   `json:"db_info"`
}

type docsLine struct {
	Docs []Record `json:"docs"`
}

type seqLine struct {
	Seq int64 `json:"seq"`
}

// ErrInvalidHeader is returned by Load when the first line is not a stream header.
var ErrInvalidHeader = errors.New("invalid record stream header")

// Dump writes the store contents to w as a record stream.
// The header and records are read in one transaction so the stream is a
// consistent snapshot.
func (s *Store) Dump(ctx context.Context, w io.Writer) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dump: begin tx: %w", err)
	}
	defer tx.Rollback() // Read-only; never committed

	info, err := s.info(ctx, tx)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	records := []Record{}
	err = tx.SelectContext(ctx, &records, `
		SELECT id, parent_id, position, content
		FROM nodes
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("dump: query nodes: %w", err)
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	header := Header{
		Version:   StreamVersion,
		DBType:    StreamDBType,
		StartTime: s.now().UTC().Format(startTimeLayout),
		DBInfo:    info,
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("dump: write header: %w", err)
	}

	for start := 0; start < len(records); start += dumpBatchSize {
		end := start + dumpBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := enc.Encode(docsLine{Docs: records[start:end]}); err != nil {
			return fmt.Errorf("dump: write docs: %w", err)
		}
	}

	if err := enc.Encode(seqLine{Seq: info.UpdateSeq}); err != nil {
		return fmt.Errorf("dump: write seq: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("dump: flush: %w", err)
	}
	return nil
}

// ParseHeader decodes a stream header line. It returns ErrInvalidHeader when
// the line is valid JSON without a db_info object.
func ParseHeader(line []byte) (Header, error) {
	var raw struct {
		Header
		DBInfo *Info `json:"db_info"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if raw.DBInfo == nil {
		return Header{}, fmt.Errorf("%w: missing db_info", ErrInvalidHeader)
	}
	h := raw.Header
	h.DBInfo = *raw.DBInfo
	return h, nil
}

// Load reads a record stream from r and merges its records into the store in
// a single transaction. The store keeps its own db_name. update_seq never
// moves backwards.
func (s *Store) Load(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)

	first, err := readLine(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("load: read header: %w", err)
	}
	if _, err := ParseHeader(first); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	var records []Record
	var streamSeq int64
	for lineNo := 2; ; lineNo++ {
		line, readErr := readLine(br)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("load: read line %d: %w", lineNo, readErr)
		}
		if len(line) > 0 {
			var entry struct {
				Docs []Record `json:"docs"`
				Seq  *int64   `json:"seq"`
			}
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("load: line %d: %w", lineNo, err)
			}
			records = append(records, entry.Docs...)
			if entry.Seq != nil && *entry.Seq > streamSeq {
				streamSeq = *entry.Seq
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	if err := s.writeRecords(ctx, records, streamSeq); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

// readLine returns the next line without its terminator. io.EOF is returned
// together with the final unterminated line, if any.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	return bytes.TrimRight(line, "\r\n"), err
}
