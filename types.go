package filedepot

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// VersionInfo describes one named rendition of a file: the bytes at Path are
// Size long and carry Type. Once the owning record is committed, Size matches
// the actual byte length of the stored object.
type VersionInfo struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	Extension string `json:"extension"`
}

// FileRecord is the persisted metadata for one logical file. Versions always
// contains at least the "original" key once the record exists.
type FileRecord struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Type             string                 `json:"type"`
	Size             int64                  `json:"size"`
	Extension        string                 `json:"extension"`
	ExtensionWithDot string                 `json:"extension_with_dot"`
	UserID           string                 `json:"user_id,omitempty"`
	Meta             map[string]any         `json:"meta,omitempty"`
	Versions         map[string]VersionInfo `json:"versions"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Original returns the "original" version. Committed records always have one.
func (r *FileRecord) Original() (VersionInfo, bool) {
	v, ok := r.Versions[VersionOriginal]
	return v, ok
}

// VersionOriginal is the version name every committed record carries.
const VersionOriginal = "original"

// FileDescriptor is the caller-supplied description of an upload. FileID may
// be set by the caller; when empty the engine generates one.
type FileDescriptor struct {
	FileID string         `json:"file_id,omitempty"`
	Name   string         `json:"name"`
	Type   string         `json:"type,omitempty"`
	Size   int64          `json:"size,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
	UserID string         `json:"user_id,omitempty"`
}

// UploadSession holds the parameters negotiated by PrepareUpload. It is
// transient: FinishUpload consumes it and it is never persisted as such. The
// transport tracks a pending marker row keyed by FileID while bytes flow.
type UploadSession struct {
	FileID    string `json:"file_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	Extension string `json:"extension"`
	UserID    string `json:"user_id,omitempty"`
}

// PrepareResult pairs the negotiated session with the enriched descriptor.
// The blocking and channel forms of PrepareUpload yield deep-equal
// PrepareResult values for identical inputs and hook outcomes.
type PrepareResult struct {
	Session UploadSession  `json:"session"`
	Opts    FileDescriptor `json:"opts"`
}

// Query selects metadata records. Zero-value fields are not matched on; an
// entirely zero Query matches every record in the collection.
type Query struct {
	ID     string
	IDs    []string
	Name   string
	UserID string
}

// IsEmpty reports whether the query constrains nothing.
func (q Query) IsEmpty() bool {
	return q.ID == "" && len(q.IDs) == 0 && q.Name == "" && q.UserID == ""
}

// SortOrder controls result ordering for Find.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FindOptions carries pagination and ordering for Find. Results are always
// ordered by creation time then ID so positional navigation is stable.
type FindOptions struct {
	Sort  SortOrder
	Skip  int
	Limit int
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Files   string `mapstructure:"files"`
	Pending string `mapstructure:"pending"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Files == "" {
		return errors.New("validate tables: files table name cannot be empty")
	}
	if !IsValidTableName(t.Files) {
		return fmt.Errorf("validate tables: invalid files table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Files)
	}
	if t.Pending == "" {
		return errors.New("validate tables: pending table name cannot be empty")
	}
	if !IsValidTableName(t.Pending) {
		return fmt.Errorf("validate tables: invalid pending table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Pending)
	}
	return nil
}
