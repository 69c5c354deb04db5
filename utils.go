package filedepot

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NewFileID returns a fresh opaque record identifier.
func NewFileID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// SanitizeName is the default naming function: it strips directory
// components, replaces path separators and control characters, and falls
// back to a generated name when nothing usable remains.
func SanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == 0 || r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case unicode.IsSpace(r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "file-" + NewFileID()
	}
	return out
}

// Extension returns the extension of name without the leading dot, lowered.
func Extension(name string) string {
	return strings.TrimPrefix(ExtensionWithDot(name), ".")
}

// ExtensionWithDot returns the dotted extension of name, lowered, or an
// empty string when the name has none.
func ExtensionWithDot(name string) string {
	ext := filepath.Ext(name)
	if ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}
