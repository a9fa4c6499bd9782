// Package redis connects to the Redis instance backing the webhook
// idempotency guard.
package redis
