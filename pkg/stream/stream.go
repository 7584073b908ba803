package stream

import (
	"context"
	"sync"

	"labelbus/pkg/errors"
	"labelbus/pkg/models"
)

// Receiver consumes messages. A non-nil error aborts the current fan-out.
type Receiver func(ctx context.Context, msg *models.Message) error

// Interceptor transforms a message before fan-out. Returning a nil message
// with a nil error drops it.
type Interceptor func(ctx context.Context, msg *models.Message) (*models.Message, error)

// Sender is anything messages can be sent into.
type Sender interface {
	Send(ctx context.Context, msg *models.Message) error
}

type receiverEntry struct {
	id uint64
	fn Receiver
}

type interceptorEntry struct {
	id uint64
	fn Interceptor
}

type Stream struct {
	mu           sync.RWMutex
	nextID       uint64
	receivers    []receiverEntry
	interceptors []interceptorEntry
	floor        int
	hasFloor     bool

	parent   *Stream
	filter   Filter
	rule     *Subscription
	detached bool
}

// New returns a root stream.
func New() *Stream {
	return &Stream{}
}

// Send delivers msg to this node's receivers if it passes the severity floor
// and every interceptor.
func (s *Stream) Send(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return nil
	}

	s.mu.RLock()
	if s.hasFloor && msg.LogLevel < s.floor {
		s.mu.RUnlock()
		return nil
	}
	interceptors := s.interceptors
	receivers := s.receivers
	s.mu.RUnlock()

	for _, ic := range interceptors {
		next, err := ic.fn(ctx, msg)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		msg = next
	}

	for _, r := range receivers {
		if err := r.fn(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// SetLogLevel sets the severity floor of this node only.
func (s *Stream) SetLogLevel(level int) *Stream {
	s.mu.Lock()
	s.floor = level
	s.hasFloor = true
	s.mu.Unlock()
	return s
}

func (s *Stream) ClearLogLevel() *Stream {
	s.mu.Lock()
	s.floor = 0
	s.hasFloor = false
	s.mu.Unlock()
	return s
}

// LogLevel returns the severity floor and whether one is set.
func (s *Stream) LogLevel() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.floor, s.hasFloor
}

// AddReceiver appends fn to the receiver list. Adding the same function twice
// creates two registrations.
func (s *Stream) AddReceiver(fn Receiver) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entries := make([]receiverEntry, len(s.receivers), len(s.receivers)+1)
	copy(entries, s.receivers)
	s.receivers = append(entries, receiverEntry{id: s.nextID, fn: fn})

	return &Subscription{stream: s, id: s.nextID, kind: kindReceiver}
}

// RemoveReceiver removes the registration behind sub. Removing an unknown or
// already removed subscription is a no-op.
func (s *Stream) RemoveReceiver(sub *Subscription) {
	if sub == nil || sub.stream != s || sub.kind != kindReceiver {
		return
	}
	s.removeReceiver(sub.id)
}

func (s *Stream) removeReceiver(id uint64) {
	s.mu.Lock()
	idx := -1
	for i, e := range s.receivers {
		if e.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	entries := make([]receiverEntry, 0, len(s.receivers)-1)
	entries = append(entries, s.receivers[:idx]...)
	entries = append(entries, s.receivers[idx+1:]...)
	s.receivers = entries
	empty := len(entries) == 0
	s.mu.Unlock()

	if empty {
		s.detach()
	}
}

// ReceiverCount returns the number of registered receivers, including the
// rules of child filter nodes.
func (s *Stream) ReceiverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.receivers)
}

func (s *Stream) AddInterceptor(fn Interceptor) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entries := make([]interceptorEntry, len(s.interceptors), len(s.interceptors)+1)
	copy(entries, s.interceptors)
	s.interceptors = append(entries, interceptorEntry{id: s.nextID, fn: fn})

	return &Subscription{stream: s, id: s.nextID, kind: kindInterceptor}
}

func (s *Stream) RemoveInterceptor(sub *Subscription) {
	if sub == nil || sub.stream != s || sub.kind != kindInterceptor {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.interceptors {
		if e.id != sub.id {
			continue
		}
		entries := make([]interceptorEntry, 0, len(s.interceptors)-1)
		entries = append(entries, s.interceptors[:i]...)
		entries = append(entries, s.interceptors[i+1:]...)
		s.interceptors = entries
		return
	}
}

func (s *Stream) InterceptorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.interceptors)
}

// MatchAll returns a child that forwards every message.
func (s *Stream) MatchAll() *Stream {
	return newChild(s, matchAll{})
}

// MatchLabels returns a child that forwards messages carrying every given
// label with an equal value. Extra labels on the message are ignored.
func (s *Stream) MatchLabels(labels models.Labels) (*Stream, error) {
	f, err := newLabelsFilter(labels)
	if err != nil {
		return nil, err
	}
	return newChild(s, f), nil
}

// MatchCondition returns a child that forwards messages whose label key
// satisfies operator (IN, NOT_IN or NOT, case-insensitive) against value.
// A non-slice value is treated as a one-element set, and so is a []byte.
func (s *Stream) MatchCondition(key, operator string, value any) (*Stream, error) {
	c, err := NewCondition(key, operator, value)
	if err != nil {
		return nil, err
	}
	return newChild(s, c), nil
}

// MatchFunc returns a child gated by an arbitrary predicate. name is used
// only for descriptions.
func (s *Stream) MatchFunc(name string, pred Predicate) (*Stream, error) {
	if pred == nil {
		return nil, errors.InvalidFilterConfig("predicate %q is nil", name)
	}
	return newChild(s, funcFilter{name: name, pred: pred}), nil
}

// Parent returns the node this stream was created from, nil for a root.
func (s *Stream) Parent() *Stream {
	return s.parent
}

// Filter returns the filter of a child node, nil for a root.
func (s *Stream) Filter() Filter {
	return s.filter
}

// Attached reports whether the node still receives messages from its parent.
// Roots are always attached.
func (s *Stream) Attached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.detached
}

// Dispose detaches a filter node from its parent. It is idempotent and does
// nothing on a root.
func (s *Stream) Dispose() {
	s.detach()
}

func (s *Stream) String() string {
	if s.filter == nil {
		return "root"
	}
	return s.filter.String()
}

func newChild(parent *Stream, f Filter) *Stream {
	child := &Stream{parent: parent, filter: f}
	child.rule = parent.AddReceiver(child.receive)
	return child
}

func (s *Stream) receive(ctx context.Context, msg *models.Message) error {
	ok, err := s.filter.Match(ctx, msg)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.Send(ctx, msg)
}

func (s *Stream) detach() {
	if s.parent == nil {
		return
	}

	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	rule := s.rule
	s.mu.Unlock()

	s.parent.RemoveReceiver(rule)
}
