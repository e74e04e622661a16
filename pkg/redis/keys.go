package redis

import "strings"

// Every key lives under the ap: namespace:
//
//	ap:idempotency:<scope>:<id>     replayed responses and processed webhook events
//	ap:rate_limit:bids:writer:<id>  per-writer bid submission window
const (
	keyNamespace      = "ap"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
)

// IdempotencyKey namespaces a replay or dedupe marker.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(keyNamespace, idempotencyPrefix, scope, id)
}

// RateLimitKey namespaces a fixed-window counter.
func (c *Client) RateLimitKey(scope string) string {
	return joinKey(keyNamespace, rateLimitPrefix, scope)
}

// BidRateScope is the limiter scope of one writer's bid submissions.
func (c *Client) BidRateScope(writerID string) string {
	return joinKey("bids", "writer", writerID)
}

// joinKey drops empty segments so an absent id never yields a trailing colon.
func joinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ":")
}
