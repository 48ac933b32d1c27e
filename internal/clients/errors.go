package clients

import "fmt"

// TransportError covers everything that is not a well-formed answer from the upstream:
// network failures, timeouts, an open circuit breaker and unexpected status codes.
type TransportError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Service, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
