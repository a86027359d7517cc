// Copyright 2025 Joseph Cumines
//
// Audit logging for MCP tool invocations

package server

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// AuditLogger records tool invocations as JSON lines via log/slog: tool
// name, redacted arguments, outcome, and duration. A nil or disabled
// logger is safe to call.
type AuditLogger struct {
	logger *slog.Logger
	file   *os.File
	mu     sync.Mutex
}

// sensitiveKeySubstrings flags argument keys whose values never belong in
// the audit log. Matching is case-insensitive on substrings so variants
// like "apiToken" or "user_password" are caught too.
var sensitiveKeySubstrings = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"credential",
	"api_key",
	"apikey",
	"private_key",
	"authorization",
	"cookie",
}

// sensitiveTools maps tool names to argument keys that carry user data.
// set_element_value writes arbitrary text into UI fields, which can
// include passwords typed into secure inputs.
var sensitiveTools = map[string][]string{
	"set_element_value": {"value"},
}

// NewAuditLogger opens an append-only audit log at path. An empty path
// disables audit logging entirely.
func NewAuditLogger(path string) (*AuditLogger, error) {
	if path == "" {
		return &AuditLogger{}, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &AuditLogger{
		logger: slog.New(handler),
		file:   file,
	}, nil
}

// IsEnabled reports whether invocations will actually be written.
func (a *AuditLogger) IsEnabled() bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logger != nil
}

// Close closes the audit log file. Safe to call when logging is disabled.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	a.logger = nil
	return err
}

// LogToolCall records one tool invocation. Arguments are redacted before
// they are written.
func (a *AuditLogger) LogToolCall(tool string, args json.RawMessage, outcome string, duration time.Duration) {
	if a == nil {
		return
	}
	a.mu.Lock()
	logger := a.logger
	a.mu.Unlock()
	if logger == nil {
		return
	}

	logger.Info("tool_invocation",
		slog.String("tool", tool),
		slog.String("arguments", redactArguments(tool, args)),
		slog.String("outcome", outcome),
		slog.Float64("duration_seconds", duration.Seconds()),
	)
}

// redactArguments returns the JSON arguments with sensitive values
// replaced. Arguments that fail to parse are dropped wholesale rather
// than logged raw.
func redactArguments(tool string, args json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}

	var parsed map[string]any
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "[unparseable]"
	}

	for _, key := range sensitiveTools[tool] {
		if _, ok := parsed[key]; ok {
			parsed[key] = "[REDACTED]"
		}
	}
	redactSensitiveKeys(parsed)

	redacted, err := json.Marshal(parsed)
	if err != nil {
		return "[unparseable]"
	}
	return string(redacted)
}

func redactSensitiveKeys(m map[string]any) {
	for key, value := range m {
		if isSensitiveKey(key) {
			m[key] = "[REDACTED]"
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			redactSensitiveKeys(v)
		case []any:
			for _, item := range v {
				if nested, ok := item.(map[string]any); ok {
					redactSensitiveKeys(nested)
				}
			}
		}
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sub := range sensitiveKeySubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
