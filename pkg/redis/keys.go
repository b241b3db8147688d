package redis

import "strings"

// Key layout: sf:<prefix>:<parts...>. Empty parts are dropped.
const (
	keyNamespace = "sf"

	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	counterPrefix     = "counter"
	sessionPrefix     = "session"
	lockPrefix        = "lock"
	alertPrefix       = "alert"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return buildKey(rateLimitPrefix, scope)
}

// OrderNumberCounterKey is the per-day sequence behind ORD-<day>-<seq>.
func (c *Client) OrderNumberCounterKey(day string) string {
	return buildKey(counterPrefix, "order_number", day)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return buildKey(sessionPrefix, "access", accessID)
}

// LockKey guards a singleton background worker.
func (c *Client) LockKey(name string) string {
	return buildKey(lockPrefix, name)
}

// LowStockAlertKey dedupes low stock alerts per variant and day.
func (c *Client) LowStockAlertKey(variantID, day string) string {
	return buildKey(alertPrefix, "low_stock", variantID, day)
}

func buildKey(parts ...string) string {
	segments := []string{keyNamespace}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
