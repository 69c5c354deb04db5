package filedepot

import (
	"context"
	"fmt"
	"net/http"
)

// errNoSuchFile is what every FileCursor operation over an absent record
// reports.
func errNoSuchFile() *Error {
	return NewError(http.StatusNotFound, "No such file")
}

// FileCursor wraps at most one record of its owning collection. It never
// owns the record; removal and link building delegate to the collection.
type FileCursor struct {
	coll *Collection
	rec  *FileRecord
}

// Get returns the wrapped record, or nil when the cursor is over nothing.
func (fc *FileCursor) Get() *FileRecord { return fc.rec }

// Remove cascades removal of the wrapped record: every version's stored
// bytes are unlinked, then the metadata record is deleted.
func (fc *FileCursor) Remove(ctx context.Context) error {
	if fc.rec == nil {
		return errNoSuchFile()
	}
	if _, err := fc.coll.RemoveByQuery(ctx, Query{ID: fc.rec.ID}); err != nil {
		return err
	}
	return nil
}

// RemoveAsync is the channel form of Remove.
func (fc *FileCursor) RemoveAsync(ctx context.Context) <-chan Outcome[struct{}] {
	return goOutcome(func() (struct{}, error) {
		return struct{}{}, fc.Remove(ctx)
	})
}

// Link builds a fetchable URL for the requested version of the wrapped
// record under uriBase.
func (fc *FileCursor) Link(version, uriBase string) (string, error) {
	if fc.rec == nil {
		return "", errNoSuchFile()
	}
	return fc.coll.Link(fc.rec, version, uriBase)
}

// LinkAsync is the channel form of Link.
func (fc *FileCursor) LinkAsync(version, uriBase string) <-chan Outcome[string] {
	return goOutcome(func() (string, error) {
		return fc.Link(version, uriBase)
	})
}

// FilesCursor is a position-tracked view over the records matching one
// query. The position starts before the first record (-1) and moves only
// through Next and Previous on this instance.
//
// A FilesCursor is single-owner state: it is not safe for concurrent use.
// Callers needing concurrent iteration create separate cursors.
type FilesCursor struct {
	coll  *Collection
	query Query
	opts  FindOptions
	cur   StoreCursor

	// current is the zero-based position pointer, -1 before the first
	// record. Unsynchronized on purpose; see the type comment.
	current int
}

// Get materializes the full ordered result set, independent of the cursor
// position.
func (fc *FilesCursor) Get(ctx context.Context) ([]FileRecord, error) {
	return fc.Fetch(ctx)
}

// GetAsync is the channel form of Get.
func (fc *FilesCursor) GetAsync(ctx context.Context) <-chan Outcome[[]FileRecord] {
	return goOutcome(func() ([]FileRecord, error) { return fc.Fetch(ctx) })
}

// HasNext recounts the matching records and reports whether a Next call
// would land on one. The recount means records inserted after the cursor
// was created are still reachable.
func (fc *FilesCursor) HasNext(ctx context.Context) (bool, error) {
	total, err := fc.cur.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("has next: %w", err)
	}
	return int64(fc.current+1) < total, nil
}

// HasNextAsync is the channel form of HasNext.
func (fc *FilesCursor) HasNextAsync(ctx context.Context) <-chan Outcome[bool] {
	return goOutcome(func() (bool, error) { return fc.HasNext(ctx) })
}

// Next advances the position and returns the record now under it. Past the
// last match it returns nil with no error.
func (fc *FilesCursor) Next(ctx context.Context) (*FileRecord, error) {
	fc.current++
	rec, ok, err := fc.cur.At(ctx, fc.current)
	if err != nil {
		return nil, fmt.Errorf("next: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// NextAsync is the channel form of Next.
func (fc *FilesCursor) NextAsync(ctx context.Context) <-chan Outcome[*FileRecord] {
	return goOutcome(func() (*FileRecord, error) { return fc.Next(ctx) })
}

// HasPrevious reports whether a Previous call would land on a record.
func (fc *FilesCursor) HasPrevious() bool {
	return fc.current > 0
}

// Previous steps the position back and returns the record now under it, or
// nil once the position is before the first record.
func (fc *FilesCursor) Previous(ctx context.Context) (*FileRecord, error) {
	fc.current--
	if fc.current < 0 {
		fc.current = -1
		return nil, nil
	}
	rec, ok, err := fc.cur.At(ctx, fc.current)
	if err != nil {
		return nil, fmt.Errorf("previous: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// PreviousAsync is the channel form of Previous.
func (fc *FilesCursor) PreviousAsync(ctx context.Context) <-chan Outcome[*FileRecord] {
	return goOutcome(func() (*FileRecord, error) { return fc.Previous(ctx) })
}

// Fetch returns all matching records in query order. An empty result is an
// empty slice, never nil.
func (fc *FilesCursor) Fetch(ctx context.Context) ([]FileRecord, error) {
	recs, err := fc.cur.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if recs == nil {
		recs = []FileRecord{}
	}
	return recs, nil
}

// FetchAsync is the channel form of Fetch.
func (fc *FilesCursor) FetchAsync(ctx context.Context) <-chan Outcome[[]FileRecord] {
	return goOutcome(func() ([]FileRecord, error) { return fc.Fetch(ctx) })
}

// First returns the first matching record, or ErrNotFound when nothing
// matches.
func (fc *FilesCursor) First(ctx context.Context) (FileRecord, error) {
	rec, ok, err := fc.cur.At(ctx, 0)
	if err != nil {
		return FileRecord{}, fmt.Errorf("first: %w", err)
	}
	if !ok {
		return FileRecord{}, ErrNotFound
	}
	return rec, nil
}

// FirstAsync is the channel form of First.
func (fc *FilesCursor) FirstAsync(ctx context.Context) <-chan Outcome[FileRecord] {
	return goOutcome(func() (FileRecord, error) { return fc.First(ctx) })
}

// Last returns the final matching record.
func (fc *FilesCursor) Last(ctx context.Context) (FileRecord, error) {
	rec, err := fc.cur.Last(ctx)
	if err != nil {
		return FileRecord{}, fmt.Errorf("last: %w", err)
	}
	return rec, nil
}

// LastAsync is the channel form of Last.
func (fc *FilesCursor) LastAsync(ctx context.Context) <-chan Outcome[FileRecord] {
	return goOutcome(func() (FileRecord, error) { return fc.Last(ctx) })
}

// Count reports the number of matching records.
func (fc *FilesCursor) Count(ctx context.Context) (int64, error) {
	n, err := fc.cur.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// CountAsync is the channel form of Count.
func (fc *FilesCursor) CountAsync(ctx context.Context) <-chan Outcome[int64] {
	return goOutcome(func() (int64, error) { return fc.Count(ctx) })
}

// Remove removes every record matched by the cursor's query, not merely the
// one under the position: per record, stored bytes are unlinked version by
// version, then the metadata record is deleted. The position is left
// untouched. Returns the number of records removed.
func (fc *FilesCursor) Remove(ctx context.Context) (int64, error) {
	return fc.coll.RemoveByQuery(ctx, fc.query)
}

// RemoveAsync is the channel form of Remove.
func (fc *FilesCursor) RemoveAsync(ctx context.Context) <-chan Outcome[int64] {
	return goOutcome(func() (int64, error) { return fc.Remove(ctx) })
}

// ForEach invokes fn once per matching record in query order. It neither
// reads nor moves the position.
func (fc *FilesCursor) ForEach(ctx context.Context, fn func(FileRecord) error) error {
	if err := fc.cur.ForEach(ctx, fn); err != nil {
		return fmt.Errorf("for each: %w", err)
	}
	return nil
}

// ForEachAsync is the channel form of ForEach.
func (fc *FilesCursor) ForEachAsync(ctx context.Context, fn func(FileRecord) error) <-chan Outcome[struct{}] {
	return goOutcome(func() (struct{}, error) {
		return struct{}{}, fc.ForEach(ctx, fn)
	})
}
