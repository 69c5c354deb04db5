// Package filedepot provides a server-side file management library built
// around named collections with pluggable metadata backends and hook-driven
// access control.
//
// Files are grouped into collections. Each collection pairs a metadata store
// with a storage backend and carries a set of optional hooks that shape its
// behavior: renaming incoming files, vetting uploads, intercepting or vetting
// downloads, and observing completed uploads.
//
// # Key Components
//
//   - Collection: Named group of files combining metadata, storage, and hooks
//   - MetadataStore: Interface for record persistence (PostgreSQL, SQLite)
//   - Storage: Interface for file byte operations (filesystem)
//   - Hooks: Per-collection callbacks in sync or async form
//   - FileCursor / FilesCursor: Navigable views over query results
//
// # Upload Lifecycle
//
// Uploads are a three-step handshake. PrepareUpload validates the descriptor,
// applies the naming hook, and asks OnBeforeUpload for permission, yielding an
// UploadSession. The transport then streams bytes to the session's storage
// path. FinishUpload fixes permissions, inserts the metadata record, and
// fires OnAfterUpload.
//
// Files that already exist in storage can skip the handshake entirely via
// AddFile, which builds a record from the file on disk.
//
// # Example Usage
//
//	coll, err := filedepot.NewCollection(store, pending, storage, filedepot.CollectionConfig{
//	    Name: "images",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Prepare and complete an upload
//	res, err := coll.PrepareUpload(ctx, filedepot.FileDescriptor{Name: "cat.jpg"})
//	// ... stream bytes to res.Session.Path ...
//	rec, err := coll.FinishUpload(ctx, res)
//
//	// Query and navigate
//	fc, err := coll.Find(ctx, filedepot.Query{UserID: "u123"}, filedepot.FindOptions{})
//	for {
//	    rec, err := fc.Next(ctx)
//	    // ...
//	}
//
// Every operation with a plain form also has an Async twin returning a
// channel of Outcome, so callers can choose blocking or select-based flow
// without behavioral differences.
//
// See the http package for the REST transport and the database package for
// metadata backend wiring.
package filedepot
