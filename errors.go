package tickreg

import "github.com/ghettovoice/tickreg/internal/errorutil"

// Error represents a registry error.
// See [errorutil.Error].
type Error = errorutil.Error

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
	// ErrNotFound is returned when an operation references an id
	// that is not present in the registry.
	ErrNotFound Error = "entry not found"
)

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

func newNotFoundError(id string) error {
	return errorutil.NewWrapperError(ErrNotFound, "id %q", id) //errtrace:skip
}
