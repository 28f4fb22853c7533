package dispatch

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrValidation marks caller errors e.g. missing request fields
	ErrValidation = errors.New("validation error")

	// ErrDeviceNotFound is returned when the device record doesn't exist
	ErrDeviceNotFound = errors.New("device not found")

	// ErrNoPushToken is a validation error for callers that require a push channel
	ErrNoPushToken = fmt.Errorf("%w: no FCM token found for this device", ErrValidation)

	// ErrBackingStore wraps any failure to read from the device/user store
	ErrBackingStore = errors.New("backing store fault")
)

const (
	PUSH_CHANNEL = "push"
	SMS_CHANNEL  = "sms"
)

// DeliveryError is a failed push or sms send. It's logged & reported, never
// allowed to stop the other channel or the trigger reset.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// storeFault marks 'err' as ErrBackingStore, the cause stays reachable with errors.Is/As
func storeFault(err error, action string) error {
	return fmt.Errorf("%w: %w", ErrBackingStore, pkgerrors.Wrap(err, action))
}
