package logger

import "testing"

func TestRedact(t *testing.T) {
	in := []interface{}{"provider", "openai", "api_key", "sk-123", "Token", "abc", "dangling"}
	out := redact(in)
	if out[1] != "openai" {
		t.Errorf("provider altered: %v", out[1])
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Errorf("secrets not redacted: %v", out)
	}
	if in[3] != "sk-123" {
		t.Error("input slice was mutated")
	}
	if out[6] != "dangling" {
		t.Errorf("odd trailing value dropped: %v", out)
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop().With("scope", "public")
	l.Debug("debug")
	l.Info("info", "k", 1)
	l.Warn("warn")
	l.Error("error")
	l.Sync()
}
