package stream

type subscriptionKind int

const (
	kindReceiver subscriptionKind = iota
	kindInterceptor
)

// Subscription identifies one receiver or interceptor registration. It stands
// in for the function's identity, since Go functions cannot be compared.
type Subscription struct {
	stream *Stream
	id     uint64
	kind   subscriptionKind
}

// Unsubscribe removes the registration. Calling it more than once is safe.
func (sub *Subscription) Unsubscribe() {
	if sub == nil {
		return
	}
	switch sub.kind {
	case kindReceiver:
		sub.stream.RemoveReceiver(sub)
	case kindInterceptor:
		sub.stream.RemoveInterceptor(sub)
	}
}

// Stream returns the node the registration belongs to.
func (sub *Subscription) Stream() *Stream {
	return sub.stream
}
