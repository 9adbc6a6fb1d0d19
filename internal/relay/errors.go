package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no backend base URL is configured.
// The relay fails closed before attempting any network call.
var ErrNotConfigured = errors.New("backend API URL is not configured")

// BackendError reports a non-success response from the remote backend,
// carrying the upstream status and body verbatim for diagnostic surfacing.
type BackendError struct {
	Status int
	Body   []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// Details returns the upstream body decoded as JSON when possible, or the
// raw text otherwise. Handlers place it in the error envelope's details field.
func (e *BackendError) Details() any {
	var decoded any
	if err := json.Unmarshal(e.Body, &decoded); err == nil {
		return decoded
	}
	return string(e.Body)
}
