package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned for 404 responses so callers can treat "already
// absent remotely" separately from other API failures.
var ErrNotFound = errors.New("remote resource not found")

// APIError carries the status code and the human-readable messages extracted
// from a non-2xx response body.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// wireError is one element of an error body. The data API uses
// `error_message`, the authorization API uses `error_description`.
type wireError struct {
	ErrorMessage     string `json:"error_message"`
	ErrorDescription string `json:"error_description"`
	ErrorKey         string `json:"error_key"`
}

func (w wireError) message() string {
	if w.ErrorMessage != "" {
		return w.ErrorMessage
	}
	if w.ErrorDescription != "" {
		return w.ErrorDescription
	}
	return w.ErrorKey
}

// parseAPIError normalizes an error body that may be a single object or an
// array of objects into one APIError.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return apiErr
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []wireError
		if err := json.Unmarshal(body, &list); err == nil {
			for _, w := range list {
				if m := w.message(); m != "" {
					apiErr.Messages = append(apiErr.Messages, m)
				}
			}
		}
	} else {
		var w wireError
		if err := json.Unmarshal(body, &w); err == nil {
			if m := w.message(); m != "" {
				apiErr.Messages = append(apiErr.Messages, m)
			}
		}
	}

	if len(apiErr.Messages) == 0 {
		apiErr.Messages = []string{trimmed}
	}
	return apiErr
}
