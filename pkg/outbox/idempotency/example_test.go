package idempotency

import (
	"context"
	"fmt"
	"time"
)

func ExampleDeduper_Claim() {
	ctx := context.Background()
	deduper, _ := NewDeduper(newMemoryStore(), 7*24*time.Hour, "stripe-webhook")

	for range 2 {
		first, _ := deduper.Claim(ctx, "evt_1NirD82eZvKYlo2C")
		if first {
			fmt.Println("processing event")
			continue
		}
		fmt.Println("already processed")
	}
	// Output:
	// processing event
	// already processed
}
