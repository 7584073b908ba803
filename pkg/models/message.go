package models

import (
	"maps"
	"time"
)

type Labels map[string]interface{}

// Message is the unit routed through streams. Interceptors may replace it,
// receivers of one Send share the same pointer.
type Message struct {
	ID        string    `json:"id,omitempty"`
	LogLevel  int       `json:"log_level"`
	Labels    Labels    `json:"labels"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func NewMessage(logLevel int, labels Labels, value any) *Message {
	if labels == nil {
		labels = Labels{}
	}
	return &Message{
		LogLevel: logLevel,
		Labels:   labels,
		Value:    value,
	}
}

// Label reports the value stored at key and whether the key is present.
func (m *Message) Label(key string) (interface{}, bool) {
	if m.Labels == nil {
		return nil, false
	}
	v, ok := m.Labels[key]
	return v, ok
}

func (m *Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// Clone returns a copy with its own label map. Value is copied shallowly.
func (m *Message) Clone() *Message {
	c := *m
	c.Labels = m.Labels.Clone()
	return &c
}

func (l Labels) Clone() Labels {
	if l == nil {
		return Labels{}
	}
	return maps.Clone(l)
}

// Merge returns a new label set holding l overlaid with other.
func (l Labels) Merge(other Labels) Labels {
	out := make(Labels, len(l)+len(other))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
