package filedepot

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// HTTPContext is the transport handle the download flow writes through. The
// engine only reads the request and writes the response; socket lifecycle
// stays with the transport.
type HTTPContext struct {
	W http.ResponseWriter
	R *http.Request
}

// Download serves one version of rec through hc. The flow is:
//
//  1. InterceptDownload, when set, may take over the whole response by
//     returning true; nothing else runs in that case.
//  2. The requested version is resolved; an unknown version is a 404.
//  3. The version's stored bytes are stat'ed; a failed stat or a
//     non-regular object is a 404.
//  4. DownloadCallback, when set, may veto with false; a veto is a 404.
//  5. The bytes are streamed, honoring a single Range header.
//
// Every failure terminates in a 404 response; nothing propagates past the
// engine boundary.
func (c *Collection) Download(hc *HTTPContext, version string, rec *FileRecord) {
	c.download(hc, version, rec)
}

// DownloadAsync is the channel form of Download; the returned channel is
// closed once the response is fully written.
func (c *Collection) DownloadAsync(hc *HTTPContext, version string, rec *FileRecord) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.download(hc, version, rec)
	}()
	return done
}

// ServePublic serves an untracked object of a public collection straight
// from the storage root, running the same intercept/stat/veto/serve flow
// over a synthetic single-version record.
func (c *Collection) ServePublic(hc *HTTPContext, objectPath string) {
	// Only actual traversal is refused; names containing ".." (for
	// example "report..v2.txt") are legitimate.
	clean := path.Clean(objectPath)
	if objectPath == "" || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		respond404(hc.W)
		return
	}
	name := path.Base(clean)
	rec := &FileRecord{
		ID:               clean,
		Name:             name,
		Type:             DetectContentType(name),
		Extension:        Extension(name),
		ExtensionWithDot: ExtensionWithDot(name),
		Versions: map[string]VersionInfo{
			VersionOriginal: {
				Path:      clean,
				Type:      DetectContentType(name),
				Extension: Extension(name),
			},
		},
	}
	c.download(hc, VersionOriginal, rec)
}

func (c *Collection) download(hc *HTTPContext, version string, rec *FileRecord) {
	ctx := hc.R.Context()

	if c.hooks.InterceptDownload.IsSet() {
		taken, err := c.hooks.InterceptDownload.dispatch(ctx, DownloadRequest{
			HTTP: hc, Record: rec, Version: version,
		})
		if err != nil {
			respond404(hc.W)
			return
		}
		if taken {
			return
		}
	}

	if rec == nil {
		respond404(hc.W)
		return
	}
	if version == "" {
		version = VersionOriginal
	}
	v, ok := rec.Versions[version]
	if !ok {
		respond404(hc.W)
		return
	}

	info, err := c.storage.Stat(ctx, v.Path)
	if err != nil || !info.Mode().IsRegular() {
		respond404(hc.W)
		return
	}

	if c.hooks.DownloadCallback.IsSet() {
		allow, err := c.hooks.DownloadCallback.dispatch(ctx, DownloadRequest{
			HTTP: hc, Record: rec, Version: version,
		})
		if err != nil || !allow {
			respond404(hc.W)
			return
		}
	}

	c.serve(hc, rec, v, info.Size())
}

// respond404 is the terminal not-found write the download flow funnels
// every failure mode into. It never raises.
func respond404(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}

func (c *Collection) serve(hc *HTTPContext, rec *FileRecord, v VersionInfo, size int64) {
	w, r := hc.W, hc.R

	contentType := v.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("inline", map[string]string{"filename": rec.Name}))
	w.Header().Set("Accept-Ranges", "bytes")

	f, err := c.storage.Open(r.Context(), v.Path)
	if err != nil {
		respond404(w)
		return
	}
	defer func() { _ = f.Close() }()

	start, length, ok := parseRange(r.Header.Get("Range"), size)
	if ok {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			respond404(w)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
		if _, err := io.CopyN(w, f, length); err != nil {
			// Stream already started: abort, never retry.
			slog.Debug("range stream aborted", "file", rec.ID, "err", err)
		}
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		slog.Debug("stream aborted", "file", rec.ID, "err", err)
	}
}

// parseRange interprets a single-range bytes header against a body of the
// given size, clamping the end to the last byte. Anything it cannot honor
// as one span (absent header, multiple ranges, malformed bounds, start past
// EOF) reports !ok and the caller streams the full body instead.
func parseRange(header string, size int64) (start, length int64, ok bool) {
	const prefix = "bytes="
	if header == "" || !strings.HasPrefix(header, prefix) || size == 0 {
		return 0, 0, false
	}
	spec := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	dash := strings.Index(spec, "-")
	if dash < 0 {
		return 0, 0, false
	}
	startStr, endStr := strings.TrimSpace(spec[:dash]), strings.TrimSpace(spec[dash+1:])

	if startStr == "" {
		// Suffix form: last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, n, true
	}

	s, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || s < 0 || s >= size {
		return 0, 0, false
	}

	end := size - 1
	if endStr != "" {
		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || e < s {
			return 0, 0, false
		}
		if e < end {
			end = e
		}
	}
	return s, end - s + 1, true
}
