package assess

import "fmt"

// TransportError indicates the scoring endpoint could not be reached,
// including request timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("scoring request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError indicates the remote endpoint explicitly reported a failure,
// e.g. missing credentials or an upstream model error.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scoring service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("scoring service error: %s", e.Message)
}

// MalformedResponse indicates the remote responded but the payload violated
// the assessment contract (missing field, wrong type, score out of range).
type MalformedResponse struct {
	Reason string
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("malformed assessment response: %s", e.Reason)
}
