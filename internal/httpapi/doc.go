// Package httpapi is the HTTP surface of the engine: the generation
// endpoint with its full entitlement control flow, the usage snapshot
// endpoint, the payment webhook, and the health probe.
package httpapi
