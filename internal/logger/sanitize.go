package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPreviewLength is the maximum length for preview strings in logs
	MaxPreviewLength = 200
	// MaxDebugPreviewLength is the maximum preview length in debug mode
	MaxDebugPreviewLength = 10000
)

// SanitizePath strips query strings and control characters from a URL path
// before it reaches a log line.
func SanitizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i != -1 {
		path = path[:i]
	}
	return sanitizeForLogging(path, MaxPreviewLength)
}

// PreviewPrompt creates a safe, bounded preview of a prompt for logging.
// Even in debug mode the text is sanitized to prevent log injection.
func PreviewPrompt(prompt string, debugMode bool) string {
	if prompt == "" {
		return ""
	}
	maxLen := MaxPreviewLength
	if debugMode {
		maxLen = MaxDebugPreviewLength
	}
	return sanitizeForLogging(prompt, maxLen)
}

// sanitizeForLogging removes control characters, validates UTF-8, and truncates
func sanitizeForLogging(s string, maxLen int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()

	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
