package storyboard

import (
	"errors"
	"fmt"
)

var (
	ErrSequenceNotFound   = errors.New("sequence not found")
	ErrSceneNotFound      = errors.New("scene not found")
	ErrShotNotFound       = errors.New("shot not found")
	ErrCardNotFound       = errors.New("concept card not found")
	ErrInvalidCategory    = errors.New("invalid concept category")
	ErrSlotOutOfRange     = errors.New("concept slot out of range")
	ErrInvalidReorder     = errors.New("reorder ids must be a permutation of the current items")
	ErrInvalidAspectRatio = errors.New("unsupported aspect ratio")
)

// ImportError reports a project file that failed structural validation or
// could not be parsed. Nothing from such a file is ever applied.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid project file: %s: %v", e.Reason, e.Err)
	}
	return "invalid project file: " + e.Reason
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err refers to an unknown entity id.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSequenceNotFound) ||
		errors.Is(err, ErrSceneNotFound) ||
		errors.Is(err, ErrShotNotFound) ||
		errors.Is(err, ErrCardNotFound)
}
