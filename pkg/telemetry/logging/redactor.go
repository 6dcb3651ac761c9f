package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// RedactPattern is a user-supplied redaction rule.
type RedactPattern struct {
	// Name identifies the pattern. A custom pattern with a built-in name
	// replaces the built-in.
	Name string `yaml:"name"`

	// Pattern is a regular expression matched against string values.
	Pattern string `yaml:"pattern"`

	// Replacement is the replacement text; $1 style group references work.
	Replacement string `yaml:"replacement"`
}

// Redactor redacts credentials and personal data from log fields. Span
// attributes routinely carry prompt and completion text, so values are
// scrubbed before they are written.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
	replace     func(string) string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternEmail       = "email"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
	PatternSSN         = "ssn"
)

// NewRedactor creates a Redactor with the built-in patterns plus custom.
// Custom patterns that fail to compile are skipped; config validation
// reports them.
func NewRedactor(custom []RedactPattern) *Redactor {
	r := &Redactor{}
	r.addDefaultPatterns()

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.set(&redactPattern{name: p.Name, regex: regex, replacement: p.Replacement})
	}
	return r
}

func (r *Redactor) addDefaultPatterns() {
	// Bearer tokens go before API keys so the whole header is replaced.
	r.set(&redactPattern{
		name:        PatternBearerToken,
		regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
		replacement: "Bearer ***",
	})
	r.set(&redactPattern{
		name:        PatternAPIKey,
		regex:       regexp.MustCompile(`(sk-[a-zA-Z0-9_-]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`),
		replacement: "sk-***",
	})
	r.set(&redactPattern{
		name:    PatternEmail,
		regex:   regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		replace: RedactEmail,
	})
	r.set(&redactPattern{
		name:        PatternPassword,
		regex:       regexp.MustCompile(`(password|passwd|pwd)[:=]\s*[^\s]+`),
		replacement: "$1: ***",
	})
	r.set(&redactPattern{
		name:        PatternSSN,
		regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		replacement: "***-**-****",
	})
}

// set adds p, replacing any pattern with the same name in place.
func (r *Redactor) set(p *redactPattern) {
	for i, existing := range r.patterns {
		if existing.name == p.name {
			r.patterns[i] = p
			return
		}
	}
	r.patterns = append(r.patterns, p)
}

// Len returns the number of active patterns.
func (r *Redactor) Len() int {
	return len(r.patterns)
}

// RedactString redacts every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		if p.replace != nil {
			value = p.regex.ReplaceAllStringFunc(value, p.replace)
		} else {
			value = p.regex.ReplaceAllString(value, p.replacement)
		}
	}
	return value
}

// RedactAttr redacts one log attribute. Values under sensitive keys are
// masked entirely; other strings have pattern matches replaced. Groups are
// walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, mask(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// RedactArgs redacts key/value log arguments and returns a copy.
func (r *Redactor) RedactArgs(args ...any) []any {
	out := make([]any, len(args))
	copy(out, args)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		switch v := out[i+1].(type) {
		case string:
			if isSensitiveKey(key) {
				out[i+1] = mask(v)
			} else {
				out[i+1] = r.RedactString(v)
			}
		default:
			if isSensitiveKey(key) {
				out[i+1] = "***"
			}
		}
	}
	return out
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"authorization", "private_key", "privatekey",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// mask keeps a short prefix of long values for correlation.
func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}

// RedactEmail keeps the first character of the user part and the domain.
func RedactEmail(email string) string {
	user, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if user == "" {
		return "***@" + domain
	}
	return user[:1] + "***@" + domain
}
