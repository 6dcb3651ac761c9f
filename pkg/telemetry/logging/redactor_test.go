package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRedactor(t *testing.T) {
	tests := []struct {
		name   string
		custom []RedactPattern
		want   int
	}{
		{name: "default patterns only", want: 5},
		{
			name:   "with custom pattern",
			custom: []RedactPattern{{Name: "custom_token", Pattern: "tok_[a-zA-Z0-9]{8}", Replacement: "tok_***"}},
			want:   6,
		},
		{
			name:   "custom pattern replaces built-in",
			custom: []RedactPattern{{Name: PatternSSN, Pattern: `\d{9}`, Replacement: "*"}},
			want:   5,
		},
		{
			name:   "invalid custom pattern is skipped",
			custom: []RedactPattern{{Name: "invalid", Pattern: "[unclosed", Replacement: "***"}},
			want:   5,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRedactor(tt.custom).Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor([]RedactPattern{{Name: "custom_token", Pattern: "tok_[a-zA-Z0-9]{8}", Replacement: "tok_***"}})

	tests := []struct {
		input string
		want  string
	}{
		{"key sk-abc123xyz789", "key sk-***"},
		{"api_key: abc123", "sk-***"},
		{"contact jane@example.com", "contact j***@example.com"},
		{"Authorization: Bearer abc.def-ghi", "Authorization: Bearer ***"},
		{"password=hunter2", "password: ***"},
		{"ssn 123-45-6789", "ssn ***-**-****"},
		{"id tok_ABCDEFGH", "id tok_***"},
		{"gpt-4o-mini", "gpt-4o-mini"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := r.RedactString(tt.input); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name string
		in   slog.Attr
		want string
	}{
		{"sensitive key masks value", slog.String("auth_token", "abcdefghijkl"), "abcd***"},
		{"short sensitive value", slog.String("password", "pw"), "***"},
		{"plain string is scrubbed", slog.String("prompt", "sk-secretvalue"), "sk-***"},
		{"sensitive non-string", slog.Any("api_key", []byte("x")), "***"},
		{"error message is scrubbed", slog.Any("error", errors.New("bad key sk-zzz")), "bad key sk-***"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.in)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr() = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}

	n := r.RedactAttr(slog.Int("count", 3))
	if n.Value.Kind() != slog.KindInt64 || n.Value.Int64() != 3 {
		t.Errorf("int attr changed: %v", n)
	}

	g := r.RedactAttr(slog.Group("req", slog.String("token", "abcdefghij"), slog.String("model", "gpt-4")))
	s := g.String()
	if strings.Contains(s, "abcdefghij") || !strings.Contains(s, "gpt-4") {
		t.Errorf("group redaction = %s", s)
	}
}

func TestRedactor_RedactArgs(t *testing.T) {
	r := NewRedactor(nil)
	args := []any{"prompt", "a@b.io", "n", 1, "secret", "abcdefghijk"}
	got := r.RedactArgs(args...)

	if got[1] != "a***@b.io" {
		t.Errorf("prompt = %v", got[1])
	}
	if got[3] != 1 {
		t.Errorf("n = %v", got[3])
	}
	if got[5] != "abcd***" {
		t.Errorf("secret = %v", got[5])
	}
	if args[1] != "a@b.io" {
		t.Error("RedactArgs modified its input")
	}
}

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"user@example.com": "u***@example.com",
		"@example.com":     "***@example.com",
		"not-an-email":     "not-an-email",
	}
	for in, want := range tests {
		if got := RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
