package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinscraper/pkg/config"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: level}, &buf)
	require.NoError(t, err)
	return log, &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info console", &config.LoggingConfig{Level: "info", Format: "console"}, false},
		{"debug json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
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
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(t, "warn")

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLevelIsPerInstance(t *testing.T) {
	quiet, quietBuf := newBufferLogger(t, "error")
	chatty, chattyBuf := newBufferLogger(t, "debug")

	quiet.Info("hidden")
	chatty.Debug("visible")

	assert.Empty(t, quietBuf.String())
	assert.Contains(t, chattyBuf.String(), "visible")
}

func TestWithFieldsAndError(t *testing.T) {
	log, buf := newBufferLogger(t, "debug")

	log.WithField("query", "cats").
		WithFields(map[string]interface{}{"limit": 10, "render": true}).
		WithError(errors.New("boom")).
		Error("stage failed")

	out := buf.String()
	assert.Contains(t, out, `"query":"cats"`)
	assert.Contains(t, out, `"limit":10`)
	assert.Contains(t, out, `"render":true`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"app":"pinscraper"`)
}

func TestWithNilErrorReturnsSameLogger(t *testing.T) {
	log, _ := newBufferLogger(t, "info")
	assert.Same(t, log, log.WithError(nil))
}

func TestStructuredLogging(t *testing.T) {
	log, buf := newBufferLogger(t, "debug")

	log.InfoWithFields("download finished", map[string]interface{}{
		"url":      "https://i.pinimg.com/originals/a.jpg",
		"size":     int64(2048),
		"duration": 1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "download finished")
	assert.Contains(t, out, `"size":2048`)
	assert.Contains(t, out, `"url":"https://i.pinimg.com/originals/a.jpg"`)
}

func TestFileOutputReceivesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := New(&config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	log.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"message":"written to file"`))
}

func TestTestLoggerCaptures(t *testing.T) {
	log := NewTestLogger()

	log.WithField("stage", "primary").WarnWithFields("stage empty", map[string]interface{}{"reason": "parse_failed"})
	log.WithError(errors.New("dial")).Error("transport failure")
	log.Info("done")

	msgs := log.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "primary", msgs[0].Fields["stage"])
	assert.Equal(t, "parse_failed", msgs[0].Fields["reason"])
	assert.EqualError(t, msgs[1].Error, "dial")
	assert.True(t, log.HasMessage("done"))
	assert.Len(t, log.GetMessagesByLevel("ERROR"), 1)

	log.Clear()
	assert.Empty(t, log.GetMessages())
}

func TestNopLogger(t *testing.T) {
	log := OrNop(nil)
	assert.NotPanics(t, func() {
		log.WithField("k", "v").WithError(errors.New("x")).Error("ignored")
	})
}
