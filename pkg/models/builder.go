package models

import "time"

type MessageBuilder struct {
	msg *Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		msg: &Message{
			Labels: Labels{},
		},
	}
}

func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.msg.ID = id
	return b
}

func (b *MessageBuilder) WithLogLevel(level int) *MessageBuilder {
	b.msg.LogLevel = level
	return b
}

func (b *MessageBuilder) WithLabel(key string, value interface{}) *MessageBuilder {
	b.msg.Labels[key] = value
	return b
}

func (b *MessageBuilder) WithLabels(labels Labels) *MessageBuilder {
	for k, v := range labels {
		b.msg.Labels[k] = v
	}
	return b
}

func (b *MessageBuilder) WithValue(value any) *MessageBuilder {
	b.msg.Value = value
	return b
}

func (b *MessageBuilder) WithTimestamp(timestamp time.Time) *MessageBuilder {
	b.msg.Timestamp = timestamp
	return b
}

// Build returns the message. Unlike the hub, the builder never stamps a time.
func (b *MessageBuilder) Build() *Message {
	return b.msg
}
