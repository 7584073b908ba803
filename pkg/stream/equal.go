package stream

import (
	"reflect"

	"labelbus/pkg/models"
)

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent stands for a label key the message does not carry. Use it as a
// filter value to match messages that lack the key.
var Absent any = absent{}

func lookup(msg *models.Message, key string) any {
	if v, ok := msg.Label(key); ok {
		return v
	}
	return Absent
}

// Equal is the label comparison used by every filter: same dynamic type and
// same value, with no numeric or string coercion. Values of non-comparable
// types (maps, slices) are compared structurally, as are structs and arrays
// whose interface fields hold non-comparable values.
func Equal(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		if eq, ok := compare(a, b); ok {
			return eq
		}
	}
	return reflect.DeepEqual(a, b)
}

// compare reports a == b, or ok=false when the comparison panics on a
// non-comparable dynamic value.
func compare(a, b any) (eq, ok bool) {
	defer func() {
		if recover() != nil {
			eq, ok = false, false
		}
	}()
	return a == b, true
}
