// Package pg manages the PostgreSQL connection pool: env-driven
// configuration, connect with retry, embedded migrations via goose, and a
// readiness check closure for health endpoints.
package pg
