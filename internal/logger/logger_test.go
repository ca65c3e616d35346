package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestProperty_LogEntriesAreStructuredJSON(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every entry decodes as JSON with level and message", prop.ForAll(
		func(message string) bool {
			var buf bytes.Buffer

			encoderConfig := zapcore.EncoderConfig{
				TimeKey:        "timestamp",
				LevelKey:       "level",
				MessageKey:     "message",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeLevel:    zapcore.LowercaseLevelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				EncodeDuration: zapcore.SecondsDurationEncoder,
			}

			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(&buf),
				zapcore.DebugLevel,
			)

			logger := zap.New(core)
			defer logger.Sync()

			logger.Info(message,
				zap.String("action", "add"),
				zap.String("collection", "0123456789abcdef"),
				zap.String("item", "k1"),
				zap.String("owner", "bob"),
			)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}

			if entry["level"] != "info" {
				return false
			}
			if entry["message"] != message {
				return false
			}
			return entry["collection"] == "0123456789abcdef" && entry["owner"] == "bob"
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}

func TestNewRespectsLevel(t *testing.T) {
	logger, err := New("production", "debug")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should enable debug entries")
	}

	logger, err = New("production", "info")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("info level should suppress debug entries")
	}
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	if _, err := New("development", "not-a-level"); err != nil {
		t.Fatalf("unknown level should fall back to the config default, got %v", err)
	}
}
