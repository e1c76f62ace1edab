// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys (operation, rule, label, domain,
// status) so log output stays consistent and greppable across the engine,
// analyzer and tool handlers, plus anonymization helpers for values that
// identify a user's mail.
package logging
