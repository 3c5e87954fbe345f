package request

import (
	"strings"
	"testing"
)

func TestParseBlock_LastKeyWins(t *testing.T) {
	got := ParseBlock("A:1\nB:2\nA:3")
	if len(got) != 2 || got["A"] != "3" || got["B"] != "2" {
		t.Fatalf("unexpected map: %v", got)
	}
}

func TestParseBlock_FirstColonAndTrim(t *testing.T) {
	got := ParseBlock("  X-Url : http://h:80/p \r\nno colon line\n : empty key\n\nEmpty:")
	if got["X-Url"] != "http://h:80/p" {
		t.Fatalf("expected value split on first colon, got %q", got["X-Url"])
	}
	if v, ok := got["Empty"]; !ok || v != "" {
		t.Fatalf("expected empty value kept, got %q (%v)", v, ok)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
}

func TestParseBlock_Empty(t *testing.T) {
	if got := ParseBlock(""); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestParseHeaderBlock_CaseInsensitiveLastWins(t *testing.T) {
	got := ParseHeaderBlock("x-a:first\r\ncontent-type: text/plain\nX-A:last")
	if len(got) != 2 || got["X-A"] != "last" || got["Content-Type"] != "text/plain" {
		t.Fatalf("unexpected map: %v", got)
	}
}

func TestAssemblePath_EncodesParameters(t *testing.T) {
	got := AssemblePath("", "/items", map[string]string{"a": "x y", "b": "2"})
	if !strings.HasPrefix(got, "/items?") {
		t.Fatalf("expected /items? prefix, got %q", got)
	}
	if !strings.Contains(got, "a=x%20y") || !strings.Contains(got, "&b=2") {
		t.Fatalf("unexpected query: %q", got)
	}
}

func TestAssemblePath_BlankRelativeIgnoresParams(t *testing.T) {
	if got := AssemblePath("http://h/api", "  ", map[string]string{"a": "1"}); got != "http://h/api" {
		t.Fatalf("expected base unchanged, got %q", got)
	}
}

func TestAssemblePath_NoParams(t *testing.T) {
	if got := AssemblePath("http://h", "/v1/x", nil); got != "http://h/v1/x" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestAssemblePath_EncodesUTF8AndReserved(t *testing.T) {
	got := AssemblePath("http://h", "/q", map[string]string{"name": "é&=?"})
	if got != "http://h/q?name=%C3%A9%26%3D%3F" {
		t.Fatalf("unexpected path %q", got)
	}
}
