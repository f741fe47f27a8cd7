package bog

import "fmt"

// AuthError means the client-credentials exchange failed.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bog auth failed: status=%d body=%s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("bog auth failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// GatewayError is a failed call to the order API: a non-2xx answer, a
// transport error or an unreadable response.
type GatewayError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("bog %s failed: status=%d body=%s", e.Operation, e.StatusCode, e.Body)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("bog %s failed: status=%d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("bog %s failed: %v", e.Operation, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
