package sink

import (
	"context"
	"sync"

	"labelbus/pkg/models"
)

// Collector keeps the most recent messages it receives in memory.
type Collector struct {
	mu       sync.RWMutex
	capacity int
	messages []*models.Message
	total    uint64
}

// NewCollector returns a collector holding up to capacity messages.
// A non-positive capacity keeps everything.
func NewCollector(capacity int) *Collector {
	return &Collector{capacity: capacity}
}

// Receive is a stream.Receiver.
func (c *Collector) Receive(_ context.Context, msg *models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.messages = append(c.messages, msg)
	if c.capacity > 0 && len(c.messages) > c.capacity {
		c.messages = append([]*models.Message(nil), c.messages[len(c.messages)-c.capacity:]...)
	}
	return nil
}

// Messages returns the held messages, oldest first.
func (c *Collector) Messages() []*models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*models.Message(nil), c.messages...)
}

func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Total counts every message ever received, including evicted ones.
func (c *Collector) Total() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

func (c *Collector) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
