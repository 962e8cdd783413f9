// Package sink persists lead snapshots. The primary store is a Google Sheet
// keyed by session id; every remote failure path lands in an append-only
// local CSV so no snapshot is ever silently lost.
package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	contractx "github.com/avanse/counselor/agent/contract"
)

// CSV is the append-only local fallback store. The header row is written once
// when the file is created; data rows are appended and never rewritten.
type CSV struct {
	path string
}

func NewCSV(path string) (*CSV, error) {
	c := &CSV{path: path}
	if err := c.ensureHeader(); err != nil {
		return nil, fmt.Errorf("create local store %s: %w", path, err)
	}
	return c, nil
}

func (c *CSV) ensureHeader() error {
	_, err := os.Stat(c.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(contractx.Header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Upsert appends the row. The local store is append-only: the latest row for
// a session id wins on read.
func (c *CSV) Upsert(ctx context.Context, row contractx.Row) error {
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row.Values()); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	w.Flush()
	return w.Error()
}
