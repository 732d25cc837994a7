package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is any non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned [%d]: %s", e.StatusCode, e.Message)
}

// ConflictError is a 409 (id already taken) or 412 (stale version). Current
// carries the server's authoritative record when the caller was allowed to
// see it; merge into it and retry.
type ConflictError struct {
	APIError
	Current Record
}

func errorFromResponse(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Current Record `json:"current"`
	}
	// a body is not guaranteed on errors
	_ = json.NewDecoder(resp.Body).Decode(&body)
	apiErr := APIError{StatusCode: resp.StatusCode, Message: body.Message}
	switch resp.StatusCode {
	case http.StatusConflict, http.StatusPreconditionFailed:
		return &ConflictError{APIError: apiErr, Current: body.Current}
	default:
		return &apiErr
	}
}
