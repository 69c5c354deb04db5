package filedepot

import "context"

// MetadataStore is the narrow interface over the external document store.
// Upload, download, and cursor logic depend on nothing beyond it, so a
// backend can be swapped without touching engine code.
//
// All methods accept a context for cancellation and timeout control and
// return ErrNotFound (possibly wrapped) when an identifier does not match.
type MetadataStore interface {
	// Insert persists a new record and returns its identifier. The
	// record's ID must be set by the caller; backends never mint IDs.
	Insert(ctx context.Context, rec FileRecord) (string, error)

	// FindOne returns the single record matching q, or ErrNotFound.
	FindOne(ctx context.Context, q Query) (FileRecord, error)

	// Find returns a cursor over the records matching q. The cursor
	// re-evaluates the query on each terminal call, so it observes
	// writes that happen after Find.
	Find(ctx context.Context, q Query, opts FindOptions) (StoreCursor, error)

	// Update applies patch to every record matching q and reports how
	// many records changed.
	Update(ctx context.Context, q Query, patch RecordPatch) (int64, error)

	// Remove deletes every record matching q and reports how many were
	// deleted. Removing with an empty query is refused by backends.
	Remove(ctx context.Context, q Query) (int64, error)

	// Count reports how many records match q.
	Count(ctx context.Context, q Query) (int64, error)
}

// RecordPatch is a partial update. Nil fields are left untouched.
type RecordPatch struct {
	Name     *string
	Type     *string
	Meta     map[string]any
	Versions map[string]VersionInfo
}

// StoreCursor is the store-side query result handle a FilesCursor wraps.
// Implementations re-issue the underlying query per call rather than holding
// server-side state.
type StoreCursor interface {
	// All materializes the full ordered result set. Empty results yield
	// an empty, non-nil slice.
	All(ctx context.Context) ([]FileRecord, error)

	// At fetches the record at zero-based index i in query order. The
	// second result is false when i is past the last match.
	At(ctx context.Context, i int) (FileRecord, bool, error)

	// Last returns the final record in query order, or ErrNotFound when
	// nothing matches.
	Last(ctx context.Context) (FileRecord, error)

	// Count reports the current number of matching records.
	Count(ctx context.Context) (int64, error)

	// ForEach invokes fn once per matching record in query order,
	// stopping at the first error.
	ForEach(ctx context.Context, fn func(FileRecord) error) error
}

// PendingTracker records in-flight uploads. The transport tracks a marker
// when bytes begin to flow; FinishUpload resolves it as its last persistence
// step; Discard removes markers for abandoned sessions.
type PendingTracker interface {
	Track(ctx context.Context, s UploadSession) error
	Resolve(ctx context.Context, fileID string) error
	Discard(ctx context.Context, fileID string) error
}
