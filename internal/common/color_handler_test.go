package common

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestColorHandler_StepPrefixAndMasking(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(h).With("step", "orders", "invocation", "3f2a9c1e-77aa-4b1d-9c4e-000000000000")

	logger.Info("sending content", "status", 201, "authorization", "Bearer abc.def.ghi")

	out := buf.String()
	if h.useColor {
		t.Fatalf("color should be off for a buffer writer")
	}
	if !strings.Contains(out, "[INFO ] [orders#3f2a9c1e] sending content") {
		t.Fatalf("missing step prefix: %q", out)
	}
	if strings.Contains(out, "step=") || strings.Contains(out, "invocation=") {
		t.Fatalf("step attrs should be lifted into the prefix: %q", out)
	}
	if !strings.Contains(out, "status=201") {
		t.Fatalf("missing status attr: %q", out)
	}
	if strings.Contains(out, "abc.def.ghi") {
		t.Fatalf("token leaked: %q", out)
	}
}

func TestColorHandler_LevelFilterAndErrors(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(h)

	logger.Info("dropped")
	logger.Error("remote call failed", "error", errors.New("password=hunter2 rejected"))

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "[ERROR] remote call failed") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked from error value: %q", out)
	}
}

func TestColorHandler_Colorize(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, nil)
	h.SetColorEnabled(true)
	slog.New(h).WithGroup("journal").Warn("retrying", "status", 503)

	out := buf.String()
	if !strings.Contains(out, Red+"503"+Reset) {
		t.Fatalf("5xx status should be red: %q", out)
	}
	if !strings.Contains(out, Cyan+"[journal]"+Reset) {
		t.Fatalf("group tag missing: %q", out)
	}
}

func TestStepTag(t *testing.T) {
	cases := []struct {
		groups           []string
		step, invocation string
		want             string
	}{
		{nil, "", "", ""},
		{nil, "s", "", "[s]"},
		{[]string{"a", "b"}, "s", "x-y", "[a.b s#x]"},
		{[]string{"a"}, "", "x", "[a]"},
	}
	for _, c := range cases {
		if got := stepTag(c.groups, c.step, c.invocation); got != c.want {
			t.Fatalf("stepTag(%v,%q,%q)=%q want %q", c.groups, c.step, c.invocation, got, c.want)
		}
	}
}
