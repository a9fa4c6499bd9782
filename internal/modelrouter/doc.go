// Package modelrouter issues outbound text-generation calls with
// primary/fallback model selection, fair-use demotion, and typed failure
// classification.
package modelrouter
