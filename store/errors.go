package store

import (
	"errors"
	"fmt"

	"github.com/gred-clermont/gomero/gomero"
)

var (
	// ErrImageNotFound is returned when the repository has no image with the
	// requested id.
	ErrImageNotFound = errors.New("image not found")

	// ErrChannelClosed is returned on fetches through an already-closed channel.
	ErrChannelClosed = errors.New("raw-data channel is closed")
)

// AccessError reports a failed remote fetch.  It names the operation, the
// image, the plane, and the tile rectangle so a caller can tell exactly which
// transfer aborted an assembly.  Fetch failures are never retried; the error
// propagates to the caller of the assembly or tile operation.
type AccessError struct {
	Op    string // failed operation, e.g. "fetch plane region"
	Image int64
	Plane gomero.PlaneCoord

	// Tile rectangle in image coordinates.
	X, Y, W, H int32

	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s failed for image %d plane %s tile (%d,%d) %dx%d: %v",
		e.Op, e.Image, e.Plane, e.X, e.Y, e.W, e.H, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// IsAccessError reports whether err is or wraps an *AccessError.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
