package githubapp

import "fmt"

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsAuth reports whether the failure was a credential problem. Auth failures
// must never be retried with the same credential.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func newAPIError(op string, status int, body []byte) *APIError {
	const maxBody = 512
	b := string(body)
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return &APIError{Op: op, StatusCode: status, Body: b}
}

// TransportError is a network-level failure (dial, TLS, timeout) talking to
// the GitHub API, as opposed to an HTTP-level rejection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("github: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
