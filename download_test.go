package filedepot_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedepot/filedepot"
)

// serveDownload runs one download through a recorder and returns the result.
func serveDownload(coll *filedepot.Collection, version string, rec *filedepot.FileRecord, rangeHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/files/x", nil)
	if rangeHeader != "" {
		r.Header.Set("Range", rangeHeader)
	}
	coll.Download(&filedepot.HTTPContext{W: w, R: r}, version, rec)
	return w
}

func TestCollection_Download(t *testing.T) {
	body := []byte("0123456789")

	newServing := func(t *testing.T, hooks filedepot.Hooks) (*filedepot.Collection, filedepot.FileRecord) {
		t.Helper()
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{Hooks: hooks})
		rec := seedRecord(t, store, storage, "f1", "digits.txt", "u1", time.Now().UTC(), body)
		return coll, rec
	}

	t.Run("serves the full body", func(t *testing.T) {
		coll, rec := newServing(t, filedepot.Hooks{})
		w := serveDownload(coll, "", &rec, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10", w.Header().Get("Content-Length"))
		assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "digits.txt")
		assert.Equal(t, body, w.Body.Bytes())
	})

	t.Run("nil record is a 404", func(t *testing.T) {
		coll, _ := newServing(t, filedepot.Hooks{})
		w := serveDownload(coll, "", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("unknown version is a 404", func(t *testing.T) {
		coll, rec := newServing(t, filedepot.Hooks{})
		w := serveDownload(coll, "thumbnail", &rec, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing stored bytes are a 404", func(t *testing.T) {
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{})
		rec := seedRecord(t, store, storage, "f1", "digits.txt", "u1", time.Now().UTC(), body)
		require.NoError(t, storage.Unlink(context.Background(), rec.Versions[filedepot.VersionOriginal].Path))

		w := serveDownload(coll, "", &rec, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("intercept hook takes over the response", func(t *testing.T) {
		vetoed := 0
		coll, rec := newServing(t, filedepot.Hooks{
			InterceptDownload: filedepot.Hook[filedepot.DownloadRequest, bool]{
				Call: func(ctx context.Context, req filedepot.DownloadRequest) (bool, error) {
					req.HTTP.W.WriteHeader(http.StatusTeapot)
					return true, nil
				},
			},
			DownloadCallback: filedepot.Hook[filedepot.DownloadRequest, bool]{
				Call: func(ctx context.Context, req filedepot.DownloadRequest) (bool, error) {
					vetoed++
					return true, nil
				},
			},
		})

		w := serveDownload(coll, "", &rec, "")
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Empty(t, w.Body.Bytes())
		assert.Equal(t, 0, vetoed, "nothing past the intercept may run")
	})

	t.Run("intercept hook declining continues the flow", func(t *testing.T) {
		coll, rec := newServing(t, filedepot.Hooks{
			InterceptDownload: filedepot.Hook[filedepot.DownloadRequest, bool]{
				Call: func(ctx context.Context, req filedepot.DownloadRequest) (bool, error) {
					return false, nil
				},
			},
		})

		w := serveDownload(coll, "", &rec, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.Bytes())
	})

	t.Run("intercept hook error is a 404", func(t *testing.T) {
		coll, rec := newServing(t, filedepot.Hooks{
			InterceptDownload: filedepot.Hook[filedepot.DownloadRequest, bool]{
				Call: func(ctx context.Context, req filedepot.DownloadRequest) (bool, error) {
					return false, fmt.Errorf("hook broke")
				},
			},
		})

		w := serveDownload(coll, "", &rec, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("download callback veto is a 404", func(t *testing.T) {
		coll, rec := newServing(t, filedepot.Hooks{
			DownloadCallback: filedepot.Hook[filedepot.DownloadRequest, bool]{
				Call: func(ctx context.Context, req filedepot.DownloadRequest) (bool, error) {
					return false, nil
				},
			},
		})

		w := serveDownload(coll, "", &rec, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("download callback sees record and version", func(t *testing.T) {
		var seen filedepot.DownloadRequest
		coll, rec := newServing(t, filedepot.Hooks{
			DownloadCallback: filedepot.Hook[filedepot.DownloadRequest, bool]{
				Call: func(ctx context.Context, req filedepot.DownloadRequest) (bool, error) {
					seen = req
					return true, nil
				},
			},
		})

		w := serveDownload(coll, "", &rec, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "f1", seen.Record.ID)
		assert.Equal(t, filedepot.VersionOriginal, seen.Version)
	})

	t.Run("async form completes the response", func(t *testing.T) {
		coll, rec := newServing(t, filedepot.Hooks{})
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/files/x", nil)

		<-coll.DownloadAsync(&filedepot.HTTPContext{W: w, R: r}, "", &rec)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.Bytes())
	})
}

func TestCollection_Download_Ranges(t *testing.T) {
	body := []byte("0123456789")

	newServing := func(t *testing.T) (*filedepot.Collection, filedepot.FileRecord) {
		t.Helper()
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{})
		rec := seedRecord(t, store, storage, "f1", "digits.txt", "u1", time.Now().UTC(), body)
		return coll, rec
	}

	tests := []struct {
		name        string
		rangeHeader string
		wantCode    int
		wantBody    string
		wantRange   string
	}{
		{
			name:        "closed range",
			rangeHeader: "bytes=0-3",
			wantCode:    http.StatusPartialContent,
			wantBody:    "0123",
			wantRange:   "bytes 0-3/10",
		},
		{
			name:        "open ended range",
			rangeHeader: "bytes=6-",
			wantCode:    http.StatusPartialContent,
			wantBody:    "6789",
			wantRange:   "bytes 6-9/10",
		},
		{
			name:        "suffix range",
			rangeHeader: "bytes=-4",
			wantCode:    http.StatusPartialContent,
			wantBody:    "6789",
			wantRange:   "bytes 6-9/10",
		},
		{
			name:        "end clamped to last byte",
			rangeHeader: "bytes=6-99",
			wantCode:    http.StatusPartialContent,
			wantBody:    "6789",
			wantRange:   "bytes 6-9/10",
		},
		{
			name:        "oversized suffix serves everything",
			rangeHeader: "bytes=-100",
			wantCode:    http.StatusPartialContent,
			wantBody:    "0123456789",
			wantRange:   "bytes 0-9/10",
		},
		{
			name:        "start past end falls back to full body",
			rangeHeader: "bytes=10-12",
			wantCode:    http.StatusOK,
			wantBody:    "0123456789",
		},
		{
			name:        "multiple ranges fall back to full body",
			rangeHeader: "bytes=0-1,4-5",
			wantCode:    http.StatusOK,
			wantBody:    "0123456789",
		},
		{
			name:        "malformed range falls back to full body",
			rangeHeader: "bytes=abc",
			wantCode:    http.StatusOK,
			wantBody:    "0123456789",
		},
		{
			name:        "inverted range falls back to full body",
			rangeHeader: "bytes=5-2",
			wantCode:    http.StatusOK,
			wantBody:    "0123456789",
		},
		{
			name:        "non bytes unit falls back to full body",
			rangeHeader: "items=0-3",
			wantCode:    http.StatusOK,
			wantBody:    "0123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll, rec := newServing(t)
			w := serveDownload(coll, "", &rec, tt.rangeHeader)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			if tt.wantRange != "" {
				assert.Equal(t, tt.wantRange, w.Header().Get("Content-Range"))
			} else {
				assert.Empty(t, w.Header().Get("Content-Range"))
			}
		})
	}
}

func TestCollection_ServePublic(t *testing.T) {
	servePublic := func(coll *filedepot.Collection, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/assets/"+path, nil)
		coll.ServePublic(&filedepot.HTTPContext{W: w, R: r}, path)
		return w
	}

	t.Run("serves untracked files by path", func(t *testing.T) {
		coll, _, storage, _ := newTestCollection(t, filedepot.CollectionConfig{Name: "assets", Public: true})
		storage.put("css/site.css", []byte("body{}"))

		w := servePublic(coll, "css/site.css")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "body{}", w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
	})

	t.Run("missing file is a 404", func(t *testing.T) {
		coll, _, _, _ := newTestCollection(t, filedepot.CollectionConfig{Name: "assets", Public: true})
		w := servePublic(coll, "nope.css")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("path traversal is a 404", func(t *testing.T) {
		coll, _, storage, _ := newTestCollection(t, filedepot.CollectionConfig{Name: "assets", Public: true})
		storage.put("secret.txt", []byte("x"))

		w := servePublic(coll, "../secret.txt")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = servePublic(coll, "a/../../secret.txt")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = servePublic(coll, "/secret.txt")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("dots inside a name are not traversal", func(t *testing.T) {
		coll, _, storage, _ := newTestCollection(t, filedepot.CollectionConfig{Name: "assets", Public: true})
		storage.put("report..v2.txt", []byte("quarterly"))

		w := servePublic(coll, "report..v2.txt")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "quarterly", w.Body.String())
	})

	t.Run("empty path is a 404", func(t *testing.T) {
		coll, _, _, _ := newTestCollection(t, filedepot.CollectionConfig{Name: "assets", Public: true})
		w := servePublic(coll, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
