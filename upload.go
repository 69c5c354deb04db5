package filedepot

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"time"
)

// PrepareUpload negotiates an upload session: it resolves the storage-safe
// name through the naming hook (exactly once), authorizes through the
// OnBeforeUpload hook (exactly once), and returns the negotiated session
// plus the enriched descriptor. It never fires OnInitiateUpload; that hook
// belongs to the transport once bytes start arriving. No state is persisted
// here, so a rejected session simply evaporates.
func (c *Collection) PrepareUpload(ctx context.Context, fd FileDescriptor) (PrepareResult, error) {
	return c.prepareUpload(ctx, fd)
}

// PrepareUploadAsync is the channel form of PrepareUpload. Both forms run
// the same core, so identical inputs and hook outcomes yield deep-equal
// results.
func (c *Collection) PrepareUploadAsync(ctx context.Context, fd FileDescriptor) <-chan Outcome[PrepareResult] {
	return goOutcome(func() (PrepareResult, error) {
		return c.prepareUpload(ctx, fd)
	})
}

func (c *Collection) prepareUpload(ctx context.Context, fd FileDescriptor) (PrepareResult, error) {
	if err := ctx.Err(); err != nil {
		return PrepareResult{}, fmt.Errorf("prepare upload: %w", err)
	}

	if fd.Name == "" {
		return PrepareResult{}, NewError(http.StatusBadRequest, "file name cannot be empty")
	}

	opts := fd
	if opts.FileID == "" {
		opts.FileID = NewFileID()
	}

	name := SanitizeName(opts.Name)
	if c.hooks.NamingFunc.IsSet() {
		hooked, err := c.hooks.NamingFunc.dispatch(ctx, &opts)
		if err != nil {
			return PrepareResult{}, fmt.Errorf("prepare upload: naming hook: %w", err)
		}
		name = SanitizeName(hooked)
	}
	opts.Name = name

	if opts.Type == "" {
		opts.Type = DetectContentType(name)
	}

	if c.hooks.OnBeforeUpload.IsSet() {
		decision, err := c.hooks.OnBeforeUpload.dispatch(ctx, &opts)
		if err != nil {
			return PrepareResult{}, fmt.Errorf("prepare upload: before hook: %w", err)
		}
		if !decision.Allow {
			reason := decision.Reason
			if reason == "" {
				reason = "upload rejected"
			}
			return PrepareResult{}, &HookRejectedError{Reason: reason}
		}
	}

	session := UploadSession{
		FileID:    opts.FileID,
		Name:      name,
		Path:      storagePathFor(opts.FileID, name),
		Size:      opts.Size,
		Type:      opts.Type,
		Extension: Extension(name),
		UserID:    opts.UserID,
	}
	return PrepareResult{Session: session, Opts: opts}, nil
}

// storagePathFor keeps stored objects flat and collision-free: the record
// ID is unique, the extension is kept for operator convenience.
func storagePathFor(fileID, name string) string {
	return fileID + ExtensionWithDot(name)
}

// FinishUpload commits a transferred session: it sets final permission bits
// on the stored bytes, inserts the metadata record, and resolves the pending
// marker, in that order. A failure at any step aborts the remaining steps
// and propagates unchanged; OnAfterUpload fires only after all three steps
// succeed and its outcome never affects the returned record.
//
// Finishes are serialized per fileID: a second concurrent finish for the
// same ID waits for the first rather than racing a duplicate insert.
func (c *Collection) FinishUpload(ctx context.Context, res PrepareResult) (FileRecord, error) {
	return c.finishUpload(ctx, res)
}

// FinishUploadAsync is the channel form of FinishUpload.
func (c *Collection) FinishUploadAsync(ctx context.Context, res PrepareResult) <-chan Outcome[FileRecord] {
	return goOutcome(func() (FileRecord, error) {
		return c.finishUpload(ctx, res)
	})
}

func (c *Collection) finishUpload(ctx context.Context, res PrepareResult) (FileRecord, error) {
	c.finishLocks.Lock(res.Session.FileID)
	defer c.finishLocks.Unlock(res.Session.FileID)

	if err := c.storage.Chmod(ctx, res.Session.Path, c.permissions); err != nil {
		return FileRecord{}, err
	}

	rec := recordFromSession(res)
	if _, err := c.store.Insert(ctx, rec); err != nil {
		return FileRecord{}, err
	}

	if c.pending != nil {
		if err := c.pending.Resolve(ctx, res.Session.FileID); err != nil {
			return FileRecord{}, err
		}
	}

	c.fireAfterUpload(ctx, &rec)
	return rec, nil
}

func recordFromSession(res PrepareResult) FileRecord {
	s := res.Session
	now := time.Now().UTC()
	return FileRecord{
		ID:               s.FileID,
		Name:             s.Name,
		Type:             s.Type,
		Size:             s.Size,
		Extension:        s.Extension,
		ExtensionWithDot: ExtensionWithDot(s.Name),
		UserID:           s.UserID,
		Meta:             res.Opts.Meta,
		Versions: map[string]VersionInfo{
			VersionOriginal: {
				Path:      s.Path,
				Size:      s.Size,
				Type:      s.Type,
				Extension: s.Extension,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fireAfterUpload dispatches OnAfterUpload and drops its outcome. The hook
// still sees a live context even when the request context is already done.
func (c *Collection) fireAfterUpload(ctx context.Context, rec *FileRecord) {
	if !c.hooks.OnAfterUpload.IsSet() {
		return
	}
	_, _ = c.hooks.OnAfterUpload.dispatch(context.WithoutCancel(ctx), rec)
}

// AddFile adopts an existing stored object directly, bypassing the session
// protocol: the bytes at path are registered as a committed record with a
// single "original" version pointing at path. The source must be an
// existing, readable, regular object; public collections refuse adoption
// because they track no records. OnAfterUpload fires only when
// proceedAfterUpload is true.
func (c *Collection) AddFile(ctx context.Context, path string, opts FileDescriptor, proceedAfterUpload bool) (FileRecord, error) {
	return c.addFile(ctx, path, opts, proceedAfterUpload)
}

// AddFileAsync is the channel form of AddFile.
func (c *Collection) AddFileAsync(ctx context.Context, path string, opts FileDescriptor, proceedAfterUpload bool) <-chan Outcome[FileRecord] {
	return goOutcome(func() (FileRecord, error) {
		return c.addFile(ctx, path, opts, proceedAfterUpload)
	})
}

func (c *Collection) addFile(ctx context.Context, path string, opts FileDescriptor, proceedAfterUpload bool) (FileRecord, error) {
	if c.public {
		return FileRecord{}, NewError(http.StatusForbidden, "cannot add file to public collection")
	}

	info, err := c.storage.Stat(ctx, path)
	if err != nil {
		return FileRecord{}, newErrorf(http.StatusBadRequest, "file does not exist: %s", path)
	}
	if !info.Mode().IsRegular() {
		return FileRecord{}, newErrorf(http.StatusBadRequest, "not a regular file: %s", path)
	}

	// The stat above can pass on an object the process cannot read.
	f, err := c.storage.Open(ctx, path)
	if err != nil {
		return FileRecord{}, newErrorf(http.StatusBadRequest, "file is not readable: %s", path)
	}
	_ = f.Close()

	name := filepath.Base(path)
	contentType := opts.Type
	if contentType == "" {
		contentType = DetectContentType(name)
	}

	fileID := opts.FileID
	if fileID == "" {
		fileID = NewFileID()
	}

	now := time.Now().UTC()
	rec := FileRecord{
		ID:               fileID,
		Name:             name,
		Type:             contentType,
		Size:             info.Size(),
		Extension:        Extension(name),
		ExtensionWithDot: ExtensionWithDot(name),
		UserID:           opts.UserID,
		Meta:             opts.Meta,
		Versions: map[string]VersionInfo{
			VersionOriginal: {
				Path:      path,
				Size:      info.Size(),
				Type:      contentType,
				Extension: Extension(name),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := c.store.Insert(ctx, rec); err != nil {
		return FileRecord{}, fmt.Errorf("add file: %w", err)
	}

	if proceedAfterUpload {
		c.fireAfterUpload(ctx, &rec)
	}
	return rec, nil
}

// DetectContentType maps a file name to its MIME type by extension, falling
// back to application/octet-stream.
func DetectContentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
