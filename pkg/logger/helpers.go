package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed HTTP exchange at debug level
func LogRequest(method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 500:
		GetLogger().WarnWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		GetLogger().DebugWithFields("HTTP request client error", fields)
	default:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the outcome of a single file download
func LogDownload(provider, url, path string, success bool, err error) {
	l := GetLogger().WithFields(map[string]interface{}{
		"provider": provider,
		"url":      url,
		"path":     path,
		"success":  success,
	})

	switch {
	case err != nil:
		l.WithError(err).Debug("Download failed")
	case success:
		l.Debug("Download completed")
	default:
		l.Debug("Download rejected")
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfter time.Duration, attempt int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"attempt":     attempt,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Debug("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Debug("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	z := zerolog.Nop()
	return &z
}
