package stream_test

import (
	"context"
	"fmt"

	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

func Example() {
	root := stream.New()

	prod, _ := root.MatchCondition("env", "IN", []string{"prod", "staging"})
	prod.SetLogLevel(40)
	prod.AddReceiver(func(_ context.Context, msg *models.Message) error {
		fmt.Printf("prod %d %v\n", msg.LogLevel, msg.Value)
		return nil
	})

	ctx := context.Background()
	_ = root.Send(ctx, models.NewMessage(50, models.Labels{"env": "prod"}, "disk full"))
	_ = root.Send(ctx, models.NewMessage(30, models.Labels{"env": "prod"}, "started"))
	_ = root.Send(ctx, models.NewMessage(50, models.Labels{"env": "dev"}, "ignored"))

	// Output:
	// prod 50 disk full
}

func ExampleStream_MatchLabels() {
	root := stream.New()

	audit, err := root.MatchLabels(models.Labels{"app": "billing"})
	if err != nil {
		fmt.Println(err)
		return
	}
	sub := audit.AddReceiver(func(_ context.Context, msg *models.Message) error {
		fmt.Println("audit:", msg.Value)
		return nil
	})

	ctx := context.Background()
	_ = root.Send(ctx, models.NewMessage(30, models.Labels{"app": "billing", "user": "u1"}, "charge"))
	sub.Unsubscribe()
	fmt.Println("attached:", audit.Attached())

	_, err = root.MatchLabels(nil)
	fmt.Println(err)

	// Output:
	// audit: charge
	// attached: false
	// INVALID_FILTER_CONFIG: no labels were provided to match on
}
