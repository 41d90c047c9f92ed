package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the uniform response shape every platform endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

// Decode unmarshals the data payload into out.
func (e Envelope) Decode(out any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("empty data payload")
	}
	return json.Unmarshal(e.Data, out)
}

// Reason picks the most specific failure text available.
func (e Envelope) Reason(status int) string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", status)
}

// Error is a failed platform call: an unsuccessful envelope or a non-2xx
// status.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// CodeOf extracts the machine-readable error code from err, or "".
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// StatusOf extracts the HTTP status from err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
