// Package logging assembles structured slog loggers for papersum commands.
//
// It owns the console and JSON handlers, the optional rotated file sink, and
// the fanout that combines them. Context-aware helpers tag log lines with run
// IDs, item IDs, and stages stamped by the services package. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
