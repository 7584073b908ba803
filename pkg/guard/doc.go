// Package guard wraps receivers with fault handling. A stream never applies
// these on its own: a receiver error aborts delivery to its siblings unless
// the receiver is wrapped here.
package guard
