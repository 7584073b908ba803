// Package stream implements the filter-chain message bus.
//
// A Stream is a node in a tree. Producers call Send on a node (usually the
// root); the node checks its severity floor, runs its interceptors in
// registration order and then calls every receiver in registration order.
// Filter nodes created with MatchAll, MatchLabels, MatchCondition or
// MatchFunc register a rule receiver on their parent and re-send matching
// messages through their own Send, so messages only ever flow downward from
// the node Send was called on.
//
// # Delivery
//
// Delivery is synchronous and unbuffered. The first receiver or interceptor
// error aborts the rest of that fan-out and is returned to the caller of
// Send, through every ancestor. A failing receiver therefore prevents
// delivery to siblings registered after it. Wrap receivers (see package
// guard) when isolation is needed.
//
// Send reads a snapshot of the receiver and interceptor lists when it starts.
// Subscribing or unsubscribing during a fan-out, including a receiver removing
// itself, only affects later Send calls.
//
// # Ownership
//
// Every filter node keeps its parent and the subscription of its rule. When
// the last receiver of a filter node is removed, or Dispose is called, the
// rule is removed from the parent and the node is detached for good. Root
// streams never detach.
//
// # Messages
//
// Receivers of one Send share the same *models.Message. Interceptors that
// change a message should return a modified Clone rather than editing it in
// place, because the same pointer may already be visible to receivers of an
// ancestor node.
package stream
