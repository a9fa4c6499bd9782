// Package ledger is the usage and credit ledger: it appends generation
// records, debits and grants purchasable credits through the store's atomic
// remote procedures, and answers usage counts with a cookie-backed fallback
// for when the primary read path is blocked.
package ledger
