package cel

import (
	"context"
	"fmt"

	"labelbus/internal/constants"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

// Predicate adapts x to a stream predicate. onError decides what an
// evaluation failure does: "allow" forwards the message, "deny" drops it and
// "error" (the default) returns the failure to the sender.
func Predicate(x *Expression, onError string) stream.Predicate {
	return func(ctx context.Context, msg *models.Message) (bool, error) {
		ok, err := x.Evaluate(ctx, msg)
		if err == nil {
			metrics.IncExpressionEvaluation(fmt.Sprintf("%t", ok))
			return ok, nil
		}

		metrics.IncExpressionEvaluation("error")
		switch onError {
		case constants.FallbackAllow:
			metrics.IncFallbackUsage("allow_on_error")
			return true, nil
		case constants.FallbackDeny:
			metrics.IncFallbackUsage("deny_on_error")
			return false, nil
		default:
			return false, fmt.Errorf("expression %q: %w", x.String(), err)
		}
	}
}

// MatchExpression creates a child of parent that forwards messages for which
// expression evaluates to true.
func MatchExpression(parent *stream.Stream, e *Evaluator, expression, onError string) (*stream.Stream, error) {
	x, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return parent.MatchFunc(expression, Predicate(x, onError))
}
