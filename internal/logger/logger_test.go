package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("component", "test").Msg("hello")

	out := buf.String()
	if out == "" {
		t.Fatal("expected log output, got empty string")
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("expected output to contain message, got: %s", out)
	}
	if !strings.Contains(out, "component") {
		t.Errorf("expected output to contain field, got: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	ctx := WithContext(context.Background(), log)
	got := FromContext(ctx)

	got.Info().Msg("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Error("logger from context did not write to the original writer")
	}
}

func TestFromContextFallback(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("expected fallback logger to be enabled")
	}
}
