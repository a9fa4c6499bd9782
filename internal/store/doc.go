// Package store is the pgx-backed persistence layer: account reads and plan
// writes, the atomic credit procedures, access-check procedures, generation
// records, the webhook audit log, and the runtime settings row. Schema
// migrations are embedded and applied at startup.
package store
