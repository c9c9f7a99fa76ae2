package eventstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType is the `type` tag of a push envelope
type EventType string

const (
	KYCSubmitted          EventType = "KYC_SUBMITTED"
	KYCStatusChanged      EventType = "KYC_STATUS_CHANGED"
	RequestSubmitted      EventType = "REQUEST_SUBMITTED"
	RequestStatusChanged  EventType = "REQUEST_STATUS_CHANGED"
	ConnectionEstablished EventType = "CONNECTION_ESTABLISHED"
)

// aliases maps tags emitted by older backend builds onto the current ones
var aliases = map[EventType]EventType{
	"NEW_REQFORM":           RequestSubmitted,
	"REQFORM_STATUS_UPDATE": RequestStatusChanged,
	"NEW_KYC":               KYCSubmitted,
	"KYC_STATUS_UPDATE":     KYCStatusChanged,
}

// Known reports whether t is one of the tags the console understands
func (t EventType) Known() bool {
	switch t {
	case KYCSubmitted, KYCStatusChanged, RequestSubmitted, RequestStatusChanged, ConnectionEstablished:
		return true
	}
	return false
}

// ErrMissingType is returned for envelopes without a type tag
var ErrMissingType = errors.New("event envelope has no type")

// Event is one decoded push envelope
type Event struct {
	Type       EventType                  `json:"type"`
	Message    string                     `json:"message,omitempty"`
	ClientID   string                     `json:"clientId,omitempty"`
	Payload    map[string]json.RawMessage `json:"-"`
	ReceivedAt time.Time                  `json:"-"`
}

// Field decodes one payload field into v
func (e Event) Field(name string, v interface{}) error {
	raw, ok := e.Payload[name]
	if !ok {
		return fmt.Errorf("event %s has no field %q", e.Type, name)
	}
	return json.Unmarshal(raw, v)
}

// Decode parses a JSON envelope {type, message?, ...payload}
func Decode(data []byte) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Event{}, fmt.Errorf("failed to parse event: %w", err)
	}

	var ev Event
	raw, ok := fields["type"]
	if !ok {
		return Event{}, ErrMissingType
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err != nil || tag == "" {
		return Event{}, ErrMissingType
	}
	ev.Type = EventType(tag)
	if canonical, ok := aliases[ev.Type]; ok {
		ev.Type = canonical
	}

	if raw, ok := fields["message"]; ok {
		_ = json.Unmarshal(raw, &ev.Message)
	}
	if raw, ok := fields["clientId"]; ok {
		_ = json.Unmarshal(raw, &ev.ClientID)
	}

	delete(fields, "type")
	delete(fields, "message")
	delete(fields, "clientId")
	ev.Payload = fields

	return ev, nil
}
