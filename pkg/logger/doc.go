// Package logger builds configured slog.Logger instances with consistent
// service attributes and environment-appropriate defaults, plus helper
// constructors for the attribute keys used across the engine.
package logger
