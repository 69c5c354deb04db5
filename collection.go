package filedepot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/im7mortal/kmutex"
)

// DefaultPermissions is applied to committed files when a collection does
// not configure its own mode.
const DefaultPermissions fs.FileMode = 0o644

// CollectionConfig describes one named file collection.
type CollectionConfig struct {
	// Name identifies the collection in URLs and the registry.
	Name string

	// Public marks a collection that serves from a fixed storage root
	// without tracked records. Public collections reject AddFile.
	Public bool

	// Permissions is the final mode FinishUpload sets on committed
	// files. Zero means DefaultPermissions.
	Permissions fs.FileMode

	// Hooks are the collection's extension points.
	Hooks Hooks
}

// Collection binds a metadata store, a pending-upload tracker, and a byte
// storage backend under one name, and owns the upload, download, and
// removal flows for the files tracked in it.
type Collection struct {
	name        string
	public      bool
	permissions fs.FileMode
	hooks       Hooks

	store   MetadataStore
	pending PendingTracker
	storage Storage

	// finishLocks serializes FinishUpload per fileID: two concurrent
	// finishes for one ID would race a duplicate insert against the
	// marker update.
	finishLocks *kmutex.Kmutex
}

// NewCollection wires a collection from its collaborators.
func NewCollection(store MetadataStore, pending PendingTracker, storage Storage, cfg CollectionConfig) (*Collection, error) {
	if cfg.Name == "" {
		return nil, errors.New("new collection: name cannot be empty")
	}
	if store == nil || storage == nil {
		return nil, fmt.Errorf("new collection %s: store and storage are required", cfg.Name)
	}
	perms := cfg.Permissions
	if perms == 0 {
		perms = DefaultPermissions
	}
	return &Collection{
		name:        cfg.Name,
		public:      cfg.Public,
		permissions: perms,
		hooks:       cfg.Hooks,
		store:       store,
		pending:     pending,
		storage:     storage,
		finishLocks: kmutex.New(),
	}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Public reports whether the collection serves untracked files.
func (c *Collection) Public() bool { return c.public }

// FindOne looks up a single record and wraps it in a FileCursor. A query
// that matches nothing yields a cursor over an absent record, whose Remove
// and Link report "No such file".
func (c *Collection) FindOne(ctx context.Context, q Query) (*FileCursor, error) {
	rec, err := c.store.FindOne(ctx, q)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &FileCursor{coll: c}, nil
		}
		return nil, fmt.Errorf("find one: %w", err)
	}
	return &FileCursor{coll: c, rec: &rec}, nil
}

// Find returns a FilesCursor over the records matching q.
func (c *Collection) Find(ctx context.Context, q Query, opts FindOptions) (*FilesCursor, error) {
	cur, err := c.store.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return &FilesCursor{coll: c, query: q, opts: opts, cur: cur, current: -1}, nil
}

// Link builds a fetchable URL for one version of rec under uriBase.
func (c *Collection) Link(rec *FileRecord, version, uriBase string) (string, error) {
	if rec == nil {
		return "", NewError(http.StatusNotFound, "No such file")
	}
	if version == "" {
		version = VersionOriginal
	}
	base := strings.TrimSuffix(uriBase, "/")
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		base, url.PathEscape(c.name), url.PathEscape(rec.ID),
		url.PathEscape(version), url.PathEscape(rec.Name)), nil
}

// RemoveByQuery removes every record matching q: each version's stored
// bytes are unlinked, then the metadata record is deleted. A missing stored
// object is tolerated (a crashed earlier removal may already have unlinked
// it); any other unlink failure stops before the record delete so a retry
// can reconcile. Returns the number of records fully removed.
func (c *Collection) RemoveByQuery(ctx context.Context, q Query) (int64, error) {
	cur, err := c.store.Find(ctx, q, FindOptions{})
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}

	recs, err := cur.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}

	var removed int64
	for i := range recs {
		rec := &recs[i]
		for name, v := range rec.Versions {
			if err := c.storage.Unlink(ctx, v.Path); err != nil && !errors.Is(err, ErrNotFound) {
				return removed, newErrorf(http.StatusInternalServerError,
					"unlink version %s of %s: %v", name, rec.ID, err)
			}
		}
		if _, err := c.store.Remove(ctx, Query{ID: rec.ID}); err != nil {
			return removed, fmt.Errorf("remove record %s: %w", rec.ID, err)
		}
		removed++
	}
	return removed, nil
}

// BeginTransfer is the transport-side entry point called when bytes start
// arriving for a prepared session. It tracks the pending marker and fires
// the OnInitiateUpload hook exactly once.
func (c *Collection) BeginTransfer(ctx context.Context, res PrepareResult) error {
	if c.pending != nil {
		if err := c.pending.Track(ctx, res.Session); err != nil {
			return fmt.Errorf("begin transfer: %w", err)
		}
	}
	opts := res.Opts
	if _, err := c.hooks.OnInitiateUpload.dispatch(ctx, &opts); err != nil {
		return fmt.Errorf("begin transfer: initiate hook: %w", err)
	}
	return nil
}

// ReceiveBytes streams the transferred body into the session's negotiated
// storage path and returns the session updated with the byte count actually
// written, ready for FinishUpload.
func (c *Collection) ReceiveBytes(ctx context.Context, res PrepareResult, body io.Reader) (PrepareResult, error) {
	written, err := c.storage.Create(ctx, res.Session.Path, body)
	if err != nil {
		return res, fmt.Errorf("receive bytes: %w", err)
	}
	res.Session.Size = written
	res.Opts.Size = written
	return res, nil
}

// AbortTransfer discards the pending marker and any partial bytes for an
// abandoned session.
func (c *Collection) AbortTransfer(ctx context.Context, res PrepareResult) error {
	if err := c.storage.Unlink(ctx, res.Session.Path); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("abort transfer: %w", err)
	}
	if c.pending != nil {
		if err := c.pending.Discard(ctx, res.Session.FileID); err != nil {
			return fmt.Errorf("abort transfer: %w", err)
		}
	}
	return nil
}

// Registry holds named collections for lookup by the transport layer.
type Registry struct {
	mu    sync.RWMutex
	colls map[string]*Collection
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{colls: make(map[string]*Collection)}
}

// Register adds a collection, refusing duplicate names.
func (r *Registry) Register(c *Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.colls[c.Name()]; ok {
		return fmt.Errorf("register collection: duplicate name %q", c.Name())
	}
	r.colls[c.Name()] = c
	return nil
}

// Get looks a collection up by name.
func (r *Registry) Get(name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.colls[name]
	return c, ok
}

// Names returns the registered collection names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.colls))
	for n := range r.colls {
		names = append(names, n)
	}
	return names
}
