package workflow

import "encoding/json"

// Status is the outcome of a stage or of a whole run's envelope.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Envelope is the universal inter-stage and caller-facing data unit. The
// orchestrator treats Data as opaque; adjacent stages agree on its shape.
// Envelopes are immutable once returned.
type Envelope struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// OK reports whether the envelope carries a success status.
func (e Envelope) OK() bool { return e.Status == StatusSuccess }

// Success builds a success envelope.
func Success(message string, data map[string]any) Envelope {
	return Envelope{Status: StatusSuccess, Message: message, Data: data}
}

// Failure builds an error envelope.
func Failure(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// ToMap flattens a typed stage output into envelope data through its JSON
// form, so stages can keep compile-time shapes while the envelope contract
// stays generic.
func ToMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
