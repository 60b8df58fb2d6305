package library

import (
	"errors"

	"darkframes/internal/axis"
	"darkframes/internal/container"
	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
)

var (
	// ErrReadOnly is returned by mutations on a snapshot opened with Open.
	ErrReadOnly = errors.New("library opened read-only")
	// ErrClosed is returned by operations on a closed library.
	ErrClosed = errors.New("library closed")
	// ErrLocked indicates another writer holds the library.
	ErrLocked = container.ErrLocked
)

// Kind classifies errors for user-facing reporting.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindNotFound          Kind = "not_found"
	KindIncompatibleImage Kind = "incompatible_image"
	KindResource          Kind = "resource"
)

// ErrorKind maps an error to its Kind. Missing or unreadable files and
// unknown errors are resource errors.
func ErrorKind(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, axis.ErrConfiguration),
		errors.Is(err, container.ErrNotLibrary),
		errors.Is(err, container.ErrSchemaMismatch),
		errors.Is(err, container.ErrUnsupportedVersion):
		return KindConfiguration
	case errors.Is(err, gridtree.ErrNotFound):
		return KindNotFound
	case errors.Is(err, frame.ErrIncompatibleImage):
		return KindIncompatibleImage
	default:
		return KindResource
	}
}
