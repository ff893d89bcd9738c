package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorCarriesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithRetailerID(ctx, "acmehome")

	log.Error(ctx, "placement failed", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{`"request_id":"req-123"`, `"retailer_id":"acmehome"`, `"stack"`, `"service":"test"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in log entry, got %s", want, out)
		}
	}
}

func TestWarnStackToggle(t *testing.T) {
	withStack := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: withStack, WarnStack: true})
	log.Warn(context.Background(), "slow placement")
	if !bytes.Contains(withStack.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack on warn when enabled, got %s", withStack.String())
	}

	withoutStack := &bytes.Buffer{}
	log = New(Options{ServiceName: "test", Output: withoutStack})
	log.Warn(context.Background(), "slow placement")
	if bytes.Contains(withoutStack.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("did not expect stack on warn by default, got %s", withoutStack.String())
	}
}

func TestWithFieldsAccumulates(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{
		"session_token": "cs_abc",
		"retailer_id":   "acmehome",
	})
	log.Info(ctx, "order placed")

	if !bytes.Contains(buf.Bytes(), []byte(`"session_token":"cs_abc"`)) {
		t.Fatalf("expected session_token field, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl := ParseLevel("warn"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("empty value should default to info, got %v", lvl)
	}
	if lvl := ParseLevel("not-a-level"); lvl != zerolog.InfoLevel {
		t.Fatalf("unknown value should default to info, got %v", lvl)
	}
}
