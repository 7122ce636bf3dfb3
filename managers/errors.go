package managers

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidReference is returned before any I/O when a reference can not be resolved to an id
	ErrInvalidReference = errors.New("invalid reference")
	// ErrNotFound is returned when editing or deleting a reminder that does not exist (anymore)
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable wraps every failed document store call
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// storeError marks err as a store failure, the driver message is kept in the text
func storeError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(ErrStoreUnavailable, "%s failed: %s", operation, err.Error())
}

// IsStoreUnavailable reports whether err is a failed document store call
func IsStoreUnavailable(err error) bool {
	return errors.Cause(err) == ErrStoreUnavailable
}
