package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_NilLabels(t *testing.T) {
	msg := NewMessage(10, nil, "x")
	require.NotNil(t, msg.Labels)
	assert.Empty(t, msg.Labels)
	assert.False(t, msg.HasTimestamp())
}

func TestMessage_Label(t *testing.T) {
	msg := NewMessage(10, Labels{"present": nil, "app": "a"}, nil)

	v, ok := msg.Label("app")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = msg.Label("present")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = msg.Label("missing")
	assert.False(t, ok)
}

func TestMessage_CloneIsolatesLabels(t *testing.T) {
	orig := NewMessage(30, Labels{"app": "a"}, "value")
	c := orig.Clone()
	c.Labels["app"] = "b"
	c.Value = "other"

	assert.Equal(t, "a", orig.Labels["app"])
	assert.Equal(t, "value", orig.Value)
	assert.NotSame(t, orig, c)
}

func TestLabels_Merge(t *testing.T) {
	base := Labels{"app": "a", "env": "dev"}
	merged := base.Merge(Labels{"env": "prod", "extra": 1})

	assert.Equal(t, Labels{"app": "a", "env": "prod", "extra": 1}, merged)
	assert.Equal(t, "dev", base["env"])
}

func TestMessageBuilder(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := NewMessageBuilder().
		WithID("m-1").
		WithLogLevel(40).
		WithLabel("app", "a").
		WithLabels(Labels{"env": "prod"}).
		WithValue("hello").
		WithTimestamp(ts).
		Build()

	assert.Equal(t, "m-1", msg.ID)
	assert.Equal(t, 40, msg.LogLevel)
	assert.Equal(t, Labels{"app": "a", "env": "prod"}, msg.Labels)
	assert.Equal(t, "hello", msg.Value)
	assert.Equal(t, ts, msg.Timestamp)
}

func TestMessageBuilder_NoImplicitTimestamp(t *testing.T) {
	msg := NewMessageBuilder().WithLogLevel(10).Build()
	assert.False(t, msg.HasTimestamp())
}
