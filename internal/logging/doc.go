// Package logging wraps log/slog with the structured helpers used across
// impfwidget: error, operation and HTTP request records, and a logger
// carried in a context.
package logging
