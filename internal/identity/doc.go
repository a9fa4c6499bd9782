// Package identity resolves the caller of a generation request to either a
// registered account or a stable anonymous visitor token carried in a signed
// long-lived cookie.
package identity
