// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// AccessEvent is an admin endpoint access attempt.
type AccessEvent struct {
	// Path is the requested route.
	Path string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Token is the presented credential; only a masked form is logged.
	Token string
	// Granted reports whether the request was allowed.
	Granted bool
	// Reason explains a denial.
	Reason string
}

// SecurityLogger logs admin access decisions. It sanitizes credentials
// before writing them.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a new security logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "admin").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "admin").Logger(),
	}
}

// LogAccess records an access decision. Denials are logged at warn level.
func (l *SecurityLogger) LogAccess(event *AccessEvent) {
	e := l.logger.Info()
	status := "granted"
	if !event.Granted {
		e = l.logger.Warn()
		status = "denied"
	}
	e = e.Str("event", "admin_access").Str("status", status).Str("path", event.Path)

	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Token != "" {
		e = e.Str("token", SanitizeToken(event.Token))
	}
	if event.Reason != "" && !event.Granted {
		e = e.Str("reason", SanitizeError(event.Reason))
	}
	e.Msg("")
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// sensitivePatterns mark error text that may echo a credential.
var sensitivePatterns = []string{
	"password",
	"secret",
	"token",
	"bearer",
	"authorization",
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "credential error"
		}
	}
	return truncateString(err, 200)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
