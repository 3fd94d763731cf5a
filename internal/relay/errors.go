package relay

import (
	"errors"
	"fmt"
)

// ErrBindingNotFound is returned when a staff thread has no recorded owner,
// usually because the thread was created by hand or the store was reset.
var ErrBindingNotFound = errors.New("no user bound to thread")

// ProvisioningError reports that the platform refused to create a thread.
type ProvisioningError struct {
	Detail string
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("thread provisioning failed: %s", e.Detail)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// DeliveryError reports that the platform rejected a content copy.
type DeliveryError struct {
	Detail string
	Err    error

	// Blocked is set when the platform reports the recipient as unreachable.
	Blocked bool
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("message delivery failed: %s", e.Detail)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// StorageError reports that the binding store could not serve an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("binding store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
