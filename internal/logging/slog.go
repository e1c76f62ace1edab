package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyRule      = "rule"
	KeyRuleID    = "rule_id"
	KeyLabel     = "label"
	KeyDomain    = "domain"
	KeyQuery     = "query"
	KeyCount     = "count"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyStage     = "stage"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// New returns a text slog.Logger writing to stderr. Debug toggles the
// level; stderr keeps stdout free for the stdio MCP transport.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Rule returns a slog attribute for a rule name.
func Rule(name string) slog.Attr {
	return slog.String(KeyRule, name)
}

// RuleID returns a slog attribute for a rule id.
func RuleID(id string) slog.Attr {
	return slog.String(KeyRuleID, id)
}

// Label returns a slog attribute for a Gmail label name.
func Label(name string) slog.Attr {
	return slog.String(KeyLabel, name)
}

// Query returns a slog attribute for a Gmail search query.
func Query(q string) slog.Attr {
	return slog.String(KeyQuery, q)
}

// Count returns a slog attribute for an item count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Stage returns a slog attribute for a multi-step operation stage.
func Stage(stage string) slog.Attr {
	return slog.String(KeyStage, stage)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted
// from output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeMessageID returns a hashed representation of a Gmail message id
// for logging. Message ids are opaque but still identify a user's mail, so
// logs carry a short hash instead.
func AnonymizeMessageID(id string) string {
	if id == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(id))
	return "msg:" + hex.EncodeToString(hash[:6])
}

// MessageID returns a slog attribute with the anonymized message id.
func MessageID(id string) slog.Attr {
	return slog.String("message_id", AnonymizeMessageID(id))
}

// ExtractDomain extracts the domain part from an email address. Useful for
// lower-cardinality logging where the full address would create too many
// unique values.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Domain returns a slog attribute for an email domain.
func Domain(email string) slog.Attr {
	return slog.String(KeyDomain, ExtractDomain(email))
}
