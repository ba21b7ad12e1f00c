package redaction

import (
	"os"
	"testing"
)

func TestRedactPassthroughWithoutSecrets(t *testing.T) {
	f := New()
	in := "hello world, nothing to see here"
	if got := f.Redact(in); got != in {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestRedactEnvSecret(t *testing.T) {
	t.Setenv("GATEWAY_SECRET_TEST", "sup3rsecretvalue")
	f := New()
	in := "the token is sup3rsecretvalue in this line"
	got := f.Redact(in)
	if got == in {
		t.Fatalf("expected redaction to change the string")
	}
	if want := "[REDACTED:GATEWAY_SECRET_TEST]"; !contains(got, want) {
		t.Fatalf("expected %q to contain %q", got, want)
	}
	if contains(got, "sup3rsecretvalue") {
		t.Fatalf("secret leaked through redaction: %q", got)
	}
}

func TestRedactPerTurnCredential(t *testing.T) {
	f := &Filter{replacements: make(map[string]string)}
	f.AddCredential("abc123bearer")
	in := "Authorization: Bearer abc123bearer"
	got := f.Redact(in)
	if contains(got, "abc123bearer") {
		t.Fatalf("credential leaked through redaction: %q", got)
	}
}

func TestRedactShortValueWarns(t *testing.T) {
	old := os.Stderr
	defer func() { os.Stderr = old }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w

	f := &Filter{replacements: make(map[string]string)}
	f.addTagged("short", "abc")

	w.Close()
	buf := make([]byte, 256)
	n, _ := r.Read(buf)
	if n == 0 {
		t.Fatalf("expected a warning to be written to stderr")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
