// Package internal holds the store-cursor machinery shared by the SQL
// metadata backends. A cursor never holds server-side state: every terminal
// call re-issues the underlying query, so it observes writes that happen
// after the cursor was created.
package internal

import (
	"context"
	"fmt"

	"github.com/filedepot/filedepot"
)

// forEachPageSize bounds how many records one ForEach page pulls.
const forEachPageSize = 100

// Lister fetches a window of the ordered result set. A limit of 0 means no
// limit.
type Lister func(ctx context.Context, skip, limit int) ([]filedepot.FileRecord, error)

// Counter reports the total number of records matching the query,
// independent of any window.
type Counter func(ctx context.Context) (int64, error)

// Cursor implements filedepot.StoreCursor over a Lister/Counter pair,
// applying the caller's skip/limit window on top of them.
type Cursor struct {
	skip  int
	limit int
	list  Lister
	count Counter
}

// NewCursor builds a cursor over the given window and query callbacks.
func NewCursor(skip, limit int, list Lister, count Counter) *Cursor {
	if skip < 0 {
		skip = 0
	}
	if limit < 0 {
		limit = 0
	}
	return &Cursor{skip: skip, limit: limit, list: list, count: count}
}

// All materializes the whole window in query order. Empty results are an
// empty, non-nil slice.
func (c *Cursor) All(ctx context.Context) ([]filedepot.FileRecord, error) {
	recs, err := c.list(ctx, c.skip, c.limit)
	if err != nil {
		return nil, fmt.Errorf("cursor all: %w", err)
	}
	if recs == nil {
		recs = []filedepot.FileRecord{}
	}
	return recs, nil
}

// At fetches the record at zero-based index i within the window.
func (c *Cursor) At(ctx context.Context, i int) (filedepot.FileRecord, bool, error) {
	if i < 0 || (c.limit > 0 && i >= c.limit) {
		return filedepot.FileRecord{}, false, nil
	}
	recs, err := c.list(ctx, c.skip+i, 1)
	if err != nil {
		return filedepot.FileRecord{}, false, fmt.Errorf("cursor at: %w", err)
	}
	if len(recs) == 0 {
		return filedepot.FileRecord{}, false, nil
	}
	return recs[0], true, nil
}

// Last returns the final record of the window, or filedepot.ErrNotFound
// when the window is empty.
func (c *Cursor) Last(ctx context.Context) (filedepot.FileRecord, error) {
	n, err := c.Count(ctx)
	if err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("cursor last: %w", err)
	}
	if n == 0 {
		return filedepot.FileRecord{}, filedepot.ErrNotFound
	}
	rec, ok, err := c.At(ctx, int(n-1))
	if err != nil {
		return filedepot.FileRecord{}, fmt.Errorf("cursor last: %w", err)
	}
	if !ok {
		return filedepot.FileRecord{}, filedepot.ErrNotFound
	}
	return rec, nil
}

// Count reports how many records are currently reachable through the
// window.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	total, err := c.count(ctx)
	if err != nil {
		return 0, fmt.Errorf("cursor count: %w", err)
	}
	total -= int64(c.skip)
	if total < 0 {
		total = 0
	}
	if c.limit > 0 && total > int64(c.limit) {
		total = int64(c.limit)
	}
	return total, nil
}

// ForEach pages through the window invoking fn per record, stopping at the
// first error fn returns.
func (c *Cursor) ForEach(ctx context.Context, fn func(filedepot.FileRecord) error) error {
	seen := 0
	for {
		pageSize := forEachPageSize
		if c.limit > 0 && c.limit-seen < pageSize {
			pageSize = c.limit - seen
		}
		if pageSize == 0 {
			return nil
		}

		recs, err := c.list(ctx, c.skip+seen, pageSize)
		if err != nil {
			return fmt.Errorf("cursor for each: %w", err)
		}
		for i := range recs {
			if err := fn(recs[i]); err != nil {
				return err
			}
		}
		seen += len(recs)
		if len(recs) < pageSize {
			return nil
		}
	}
}
