package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// StableDumper writes the same records on every call. Only the header's
// start_time changes, taken from Clock, the way a real store dump behaves.
type StableDumper struct {
	Name  string
	Body  string
	Clock func() time.Time
}

// Dump implements the store dump contract.
func (d *StableDumper) Dump(ctx context.Context, w io.Writer) error {
	now := time.Now
	if d.Clock != nil {
		now = d.Clock
	}
	_, err := io.WriteString(w, header(d.Name, now())+d.Body)
	return err
}

// FlakyDumper writes different records on every call, modelling a
// non-deterministic serializer.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FlakyDumper struct {
	mu    sync.Mutex
	calls int
}

// Dump implements the store dump contract.
func (d *FlakyDumper) Dump(ctx context.Context, w io.Writer) error {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.mu.Unlock()
	_, err := fmt.Fprintf(w, "%s{\"docs\":[{\"_id\":\"%d\",\"position\":0,\"content\":\"run %d\"}]}\n", header("flaky", time.Unix(0, 0)), n, n)
	return err
}

// Calls returns how many dumps were taken.
func (d *FlakyDumper) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// ErrDumpFailed is returned by FailingDumper.
var ErrDumpFailed = errors.New("dump failed")

// FailingDumper writes a partial header and fails.
type FailingDumper struct{}

// Dump implements the store dump contract.
func (FailingDumper) Dump(ctx context.Context, w io.Writer) error {
	_, _ = io.WriteString(w, `{"version":"1"`)
	return ErrDumpFailed
}

func header(name string, at time.Time) string {
	return fmt.Sprintf("{\"version\":\"1\",\"db_type\":\"test\",\"start_time\":%q,\"db_info\":{\"db_name\":%q,\"doc_count\":1,\"update_seq\":1}}\n",
		at.UTC().Format("2006-01-02T15:04:05.000Z07:00"), name)
}
