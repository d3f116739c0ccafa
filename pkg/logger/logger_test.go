package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "error level", cfg: &config.LoggingConfig{Level: "error"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "verbose"}, wantErr: true},
		{
			name: "file output",
			cfg:  &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "nekodl.log")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	l, err := New(&config.LoggingConfig{Level: "error"})
	require.NoError(t, err)

	parent := l.WithField("component", "batch").(*zerologLogger)
	child := parent.WithField("url", "https://example.com/a.png").(*zerologLogger)

	assert.Len(t, parent.fields, 1)
	assert.Len(t, child.fields, 2)
	assert.Equal(t, "batch", child.fields["component"])
}

func TestTestLoggerCapturesFieldsAndErrors(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("provider", "nekobot").
		WithError(errors.New("boom")).
		WarnWithFields("Request failed", map[string]interface{}{"status": 500})
	tl.Debug("plain")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "nekobot", msgs[0].Fields["provider"])
	assert.Equal(t, 500, msgs[0].Fields["status"])
	assert.Equal(t, "boom", msgs[0].Error)
	assert.True(t, tl.HasMessage("plain"))
	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLoggerReplacement(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	t.Cleanup(func() { SetLogger(NewNopLogger()) })

	LogRateLimit("https://example.com", 0, 1)
	LogDownload("nekobot", "https://example.com/a.png", "images/a.png", true, nil)

	assert.True(t, tl.HasMessage("Rate limit reached, backing off"))
	assert.True(t, tl.HasMessage("Download completed"))
}
