package guard

import (
	"context"

	"labelbus/pkg/errors"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

// Recover turns a panic inside r into an error.
func Recover(r stream.Receiver) stream.Receiver {
	return func(ctx context.Context, msg *models.Message) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = errors.RecoverPanic(p)
			}
		}()
		return r(ctx, msg)
	}
}
