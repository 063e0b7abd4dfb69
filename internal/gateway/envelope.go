package gateway

import (
	"encoding/json"
	"errors"
)

// Sentinel results a caller can branch on with errors.Is. They are distinct
// from a well-formed error envelope on purpose.
var (
	// ErrSessionExpired is returned when the upstream signals session expiry
	// (HTTP 419 plus the marker substring). One top-level handler reacts to
	// it by clearing the session store and redirecting to login; the
	// transport itself never navigates.
	ErrSessionExpired = errors.New("gateway: session expired")
	// ErrNotFound is returned for HTTP 404 responses.
	ErrNotFound = errors.New("gateway: not found")
	// ErrMalformedPayload is returned when the upstream body is not a
	// structured JSON object.
	ErrMalformedPayload = errors.New("gateway: malformed payload")
	// ErrUnexpectedMIME is returned by binary fetches whose response type
	// does not match the expected one.
	ErrUnexpectedMIME = errors.New("gateway: unexpected content type")
)

// SessionExpiredMarker is the substring the upstream embeds in 419 messages.
// The status code and substring are a fixed contract with the backend.
const SessionExpiredMarker = "session expired"

// Envelope is the uniform shape every completed call resolves to. Callers
// branch on Err instead of handling transport exceptions.
type Envelope struct {
	// Online is false when the failure was connectivity, not the server.
	Online     bool            `json:"online"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data,omitempty"`
	Err        bool            `json:"error"`
	Title      string          `json:"title,omitempty"`
	Message    string          `json:"message,omitempty"`
	// Request echoes the payload that produced this response, for
	// correlation and debugging.
	Request       any    `json:"request,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// Decode unmarshals the response payload into target.
func (e *Envelope) Decode(target any) error {
	if e == nil || len(e.Data) == 0 {
		return errors.New("gateway: empty payload")
	}
	return json.Unmarshal(e.Data, target)
}

// serverBody is the subset of upstream response fields the gateway inspects.
// List endpoints nest their payload under data with an optional totals
// side-channel; the gateway passes both through untouched.
type serverBody struct {
	Error   bool   `json:"error"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
