package sns

import "errors"

var ErrUnknownMessageType = errors.New("message type is not recognized")

// VerificationError means the signature could not be checked at all, as
// opposed to a signature that was checked and did not match.
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

func verificationError(reason string, err error) error {
	return &VerificationError{Reason: reason, Err: err}
}
