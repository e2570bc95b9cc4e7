package decoder

import (
	"errors"
	"fmt"
)

var (
	ErrNeedMoreInput = errors.New("the decoder needs more input")
	ErrEndOfStream   = errors.New("the decoder reached the end of the stream")
)

// StatusError is a decoder status code together with its human-readable message.
type StatusError struct {
	Code    int
	Message string
	Cause   error
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Code)
}

func (e StatusError) Unwrap() error {
	return e.Cause
}

func describeStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.Message
		if msg == "" {
			msg = fmt.Sprintf("decoder status %d", statusErr.Code)
		}
		return statusErr.Code, msg
	}
	return 0, err.Error()
}

type ErrConfiguration struct {
	CodecName string
	Reason    string
}

func (e ErrConfiguration) Error() string {
	if e.CodecName == "" {
		return fmt.Sprintf("invalid decoder configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid decoder configuration for codec '%s': %s", e.CodecName, e.Reason)
}

type ErrContextAllocationFailed struct {
	CodecName string
}

func (e ErrContextAllocationFailed) Error() string {
	return fmt.Sprintf("unable to allocate a codec context for '%s'", e.CodecName)
}

type ErrHardwareUnavailable struct {
	DeviceType HardwareDeviceType
	Reason     error
}

func (e ErrHardwareUnavailable) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("hardware device type '%s' is unavailable", e.DeviceType)
	}
	return fmt.Sprintf("hardware device type '%s' is unavailable: %v", e.DeviceType, e.Reason)
}

func (e ErrHardwareUnavailable) Unwrap() error {
	return e.Reason
}

type ErrOpenFailed struct {
	Code    int
	Message string
}

func (e ErrOpenFailed) Error() string {
	return fmt.Sprintf("unable to open the codec context: %s (status %d)", e.Message, e.Code)
}

type ErrSubmitFailed struct {
	Code    int
	Message string
	Err     error
}

func (e ErrSubmitFailed) Error() string {
	return fmt.Sprintf("unable to send the packet to the decoder: %s (status %d)", e.Message, e.Code)
}

func (e ErrSubmitFailed) Unwrap() error {
	return e.Err
}

type ErrReceiveFailed struct {
	Code    int
	Message string
	Err     error
}

func (e ErrReceiveFailed) Error() string {
	return fmt.Sprintf("unable to receive a frame from the decoder: %s (status %d)", e.Message, e.Code)
}

func (e ErrReceiveFailed) Unwrap() error {
	return e.Err
}

// NeedMoreInput reports the expected transient condition, which is not a fault.
func (e ErrReceiveFailed) NeedMoreInput() bool {
	return errors.Is(e.Err, ErrNeedMoreInput)
}

type ErrTransferFailed struct {
	Code    int
	Message string
	Err     error
}

func (e ErrTransferFailed) Error() string {
	return fmt.Sprintf("unable to transfer the frame from the hardware: %s (status %d)", e.Message, e.Code)
}

func (e ErrTransferFailed) Unwrap() error {
	return e.Err
}

type ErrSessionClosed struct{}

func (ErrSessionClosed) Error() string {
	return "the decoder session is closed"
}

type ErrInvalidState struct {
	Operation string
	State     SessionState
}

func (e ErrInvalidState) Error() string {
	return fmt.Sprintf("operation '%s' is not allowed in session state '%s'", e.Operation, e.State)
}
