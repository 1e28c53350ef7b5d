package model

import "encoding/json"

// StatusSuccess is the envelope status of a successful backend call.
const StatusSuccess = "success"

// Envelope is the {status, data} wrapper around every backend response.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// RawEnvelope keeps the data block undecoded. The client decodes the wrapper
// first and the payload second so a malformed payload still surfaces the
// backend's message.
//
// Token and RefreshToken are only set by the login and refresh endpoints,
// which return them beside the data block rather than inside it.
type RawEnvelope struct {
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	Error        string          `json:"error,omitempty"`
	Token        string          `json:"token,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// ErrorText returns the best human-readable message the backend sent.
func (e RawEnvelope) ErrorText() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
