package stream

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"labelbus/pkg/errors"
	"labelbus/pkg/models"
)

type Operator string

const (
	OpIn    Operator = "IN"
	OpNotIn Operator = "NOT_IN"
	OpNot   Operator = "NOT"
)

var operators = []Operator{OpIn, OpNotIn, OpNot}

// ParseOperator normalizes op to upper case and validates it.
func ParseOperator(op string) (Operator, error) {
	normalized := Operator(strings.ToUpper(op))
	for _, known := range operators {
		if normalized == known {
			return normalized, nil
		}
	}
	return "", errors.InvalidFilterConfig("invalid operator %q (supported: IN, NOT_IN, NOT)", op)
}

// Condition compares a single label against a value set.
type Condition struct {
	Key      string
	Operator Operator
	Values   []any
}

func NewCondition(key, operator string, value any) (*Condition, error) {
	op, err := ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	return &Condition{Key: key, Operator: op, Values: toSet(value)}, nil
}

// Match applies the operator. NOT compares against the first value only.
func (c *Condition) Match(_ context.Context, msg *models.Message) (bool, error) {
	actual := lookup(msg, c.Key)

	switch c.Operator {
	case OpIn:
		return contains(c.Values, actual), nil
	case OpNotIn:
		return !contains(c.Values, actual), nil
	case OpNot:
		var first any = Absent
		if len(c.Values) > 0 {
			first = c.Values[0]
		}
		return !Equal(actual, first), nil
	default:
		return false, errors.InvalidFilterConfig("invalid operator %q", c.Operator)
	}
}

func (c *Condition) String() string {
	return fmt.Sprintf("condition(%s %s %v)", c.Key, c.Operator, c.Values)
}

func toSet(value any) []any {
	if value == nil {
		return []any{nil}
	}
	switch v := value.(type) {
	case []any:
		return v
	case []byte:
		return []any{v}
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}

	set := make([]any, rv.Len())
	for i := range set {
		set[i] = rv.Index(i).Interface()
	}
	return set
}

func contains(set []any, v any) bool {
	for _, candidate := range set {
		if Equal(candidate, v) {
			return true
		}
	}
	return false
}
