// Package source resolves merge inputs into ordered source descriptors.
package source

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidInput is returned when neither a valid input directory nor a
// readable manifest file is supplied.
var ErrInvalidInput = errors.New("no usable input source")

// Kind discriminates the origin of a source descriptor. The classification
// happens exactly once, at resolution time.
type Kind int

const (
	// KindLocalPath is a file on the local filesystem.
	KindLocalPath Kind = iota

	// KindRemoteURL is a document retrieved over HTTP(S).
	KindRemoteURL
)

// String returns a short label for logs and reports.
func (k Kind) String() string {
	switch k {
	case KindLocalPath:
		return "local"
	case KindRemoteURL:
		return "url"
	default:
		return "unknown"
	}
}

// Descriptor identifies one merge input and its position in the merge order.
// OrderIndex is the position the entry held in the directory listing or
// manifest; the merge preserves this ordering.
type Descriptor struct {
	Origin     string
	Kind       Kind
	OrderIndex int
}

// Name returns a short human-readable identifier for the source: the base
// filename for local paths, the last URL path segment for remote URLs.
func (d Descriptor) Name() string {
	if d.Kind == KindRemoteURL {
		if u, err := url.Parse(d.Origin); err == nil {
			if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
				return base
			}
			return u.Host
		}
		return d.Origin
	}
	return filepath.Base(d.Origin)
}

// urlScheme matches manifest lines that should be fetched over HTTP.
var urlScheme = regexp.MustCompile(`(?i)^https?://`)

// IsURL reports whether a manifest line is a remote URL rather than a path.
func IsURL(line string) bool {
	return urlScheme.MatchString(line)
}

// HasPDFExtension reports whether name ends in ".pdf", case-insensitively.
func HasPDFExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
