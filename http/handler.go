package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/filedepot/filedepot"
)

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	ReadVerifier  RequestVerifier
	WriteVerifier RequestVerifier
	CORS          CORSConfig

	// MaxUploadSize caps request bodies on the upload route. Zero means
	// no limit.
	MaxUploadSize int64
}

// Handler exposes the registered collections over HTTP: upload, download,
// list, and delete per collection. Byte transfer happens here, which is why
// this is also where OnInitiateUpload fires.
type Handler struct {
	config   HandlerConfig
	registry *filedepot.Registry
}

// NewHandler creates a new Handler over the given registry.
func NewHandler(config *HandlerConfig, registry *filedepot.Registry) *Handler {
	return &Handler{
		config:   *config,
		registry: registry,
	}
}

// Router returns an http.Handler with per-collection routes. Reads go
// through the read verifier, writes through the write verifier.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.ReadVerifier))
		r.Get("/{collection}", h.handleList)
		r.Get("/{collection}/{id}/{version}/{filename}", h.handleDownload)
		r.Get("/{collection}/*", h.handlePublicDownload)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.WriteVerifier))
		r.Post("/{collection}", h.handleUpload)
		r.Delete("/{collection}/{id}", h.handleDelete)
	})

	return r
}

func (h *Handler) collection(w http.ResponseWriter, r *http.Request) (*filedepot.Collection, bool) {
	name := chi.URLParam(r, "collection")
	coll, ok := h.registry.Get(name)
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "Unknown collection")
		return nil, false
	}
	return coll, true
}

// handleUpload runs the whole session protocol for a request body:
// prepare, begin transfer (pending marker + initiate hook), stream bytes
// into storage, finish.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	fd := filedepot.FileDescriptor{
		FileID: r.Header.Get("X-File-ID"),
		Name:   r.Header.Get("X-File-Name"),
		Type:   r.Header.Get("Content-Type"),
		UserID: r.Header.Get("X-User-ID"),
		Size:   r.ContentLength,
	}
	if fd.Name == "" {
		fd.Name = r.URL.Query().Get("name")
	}
	if fd.Name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Missing file name")
		return
	}

	res, err := coll.PrepareUpload(ctx, fd)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := coll.BeginTransfer(ctx, res); err != nil {
		HandleError(w, err)
		return
	}

	body := r.Body
	if h.config.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, body, h.config.MaxUploadSize)
	}

	res, err = coll.ReceiveBytes(ctx, res, body)
	if err != nil {
		if abortErr := coll.AbortTransfer(ctx, res); abortErr != nil {
			HandleError(w, abortErr)
			return
		}
		HandleError(w, err)
		return
	}

	rec, err := coll.FinishUpload(ctx, res)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	version := chi.URLParam(r, "version")

	fc, err := coll.FindOne(r.Context(), filedepot.Query{ID: id})
	if err != nil {
		HandleError(w, err)
		return
	}

	coll.Download(&filedepot.HTTPContext{W: w, R: r}, version, fc.Get())
}

// handlePublicDownload serves untracked objects of public collections by
// storage path. Non-public collections only serve tracked records.
func (h *Handler) handlePublicDownload(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !coll.Public() {
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
		return
	}

	prefix := "/" + chi.URLParam(r, "collection") + "/"
	path := strings.TrimPrefix(r.URL.Path, prefix)
	coll.ServePublic(&filedepot.HTTPContext{W: w, R: r}, path)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = max(1, min(1000, parsed))
		}
	}
	skip := 0
	if skipStr := r.URL.Query().Get("skip"); skipStr != "" {
		if parsed, err := strconv.Atoi(skipStr); err == nil {
			skip = max(0, parsed)
		}
	}

	query := filedepot.Query{UserID: r.URL.Query().Get("user_id")}
	cursor, err := coll.Find(r.Context(), query, filedepot.FindOptions{Skip: skip, Limit: limit})
	if err != nil {
		HandleError(w, err)
		return
	}

	items, err := cursor.Fetch(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	coll, ok := h.collection(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	fc, err := coll.FindOne(r.Context(), filedepot.Query{ID: id})
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := fc.Remove(r.Context()); err != nil {
		if errors.Is(err, filedepot.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "File not found")
		} else {
			HandleError(w, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
