package log

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// minRedactedLength is the shortest literal value WithRedactedValues masks.
// Shorter values would turn ordinary words and numbers into masks.
const minRedactedLength = 3

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	// Contact data typed into forms
	"email":   true,
	"e-mail":  true,
	"phone":   true,
	"tel":     true,
	"message": true,
	"contact": true,

	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,

	// Session
	"session":    true,
	"session_id": true,
	"sessionid":  true,
	"api_key":    true,
	"apikey":     true,
}

// sensitiveKeywords mask any key that contains them, e.g. "contact_email".
// The bare "key" keyword is excluded to avoid false positives such as "primary_key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "credential",
	"email", "phone",
}

// sensitivePatterns match whole values that are masked regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// emailPattern finds e-mail addresses embedded in longer text.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// SecureHandler wraps an slog.Handler and masks contact details and
// credentials in attribute values before they reach the underlying handler.
// The message itself is left alone; put data in attributes, not in the message.
type SecureHandler struct {
	handler slog.Handler

	// literals masks the configured contact values wherever they appear.
	literals *strings.Replacer
}

// HandlerOption configures a SecureHandler.
type HandlerOption func(*SecureHandler)

// WithRedactedValues masks every occurrence of the given literal values,
// typically the phone number and message typed into forms. Each line of a
// multi-line value is masked on its own as well.
func WithRedactedValues(values ...string) HandlerOption {
	return func(h *SecureHandler) {
		h.literals = newLiteralReplacer(values)
	}
}

// newLiteralReplacer builds a replacer for values, longest first so that a
// value containing another is masked as a whole. It returns nil when nothing
// is long enough to mask.
func newLiteralReplacer(values []string) *strings.Replacer {
	var literals []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if len(v) >= minRedactedLength && !slices.Contains(literals, v) {
			literals = append(literals, v)
		}
	}
	for _, v := range values {
		add(v)
		if strings.Contains(v, "\n") {
			for _, line := range strings.Split(v, "\n") {
				add(line)
			}
		}
	}
	if len(literals) == 0 {
		return nil
	}

	slices.SortFunc(literals, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	pairs := make([]string, 0, 2*len(literals))
	for _, v := range literals {
		pairs = append(pairs, v, MaskValue)
	}
	return strings.NewReplacer(pairs...)
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler, opts ...HandlerOption) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes sanitized and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs), literals: h.literals}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), literals: h.literals}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.sanitizeString(a.Value.String()))
	case slog.KindAny:
		// Errors often quote form values back, e.g. validation messages.
		if err, ok := a.Value.Any().(error); ok {
			if masked := h.sanitizeString(err.Error()); masked != err.Error() {
				return slog.String(a.Key, masked)
			}
		}
	}

	return a
}

// sanitizeString masks the whole value when it matches a sensitive pattern,
// and otherwise masks configured literals and e-mail addresses inside it.
func (h *SecureHandler) sanitizeString(value string) string {
	if h.literals != nil {
		value = h.literals.Replace(value)
	}
	return sanitizeString(value)
}

// sanitizeString applies the pattern rules that need no configuration.
func sanitizeString(value string) string {
	if isSensitiveValue(value) {
		return MaskValue
	}
	return emailPattern.ReplaceAllString(value, MaskValue)
}

// isSensitiveKey reports whether values under key are always masked.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger creates a new text slog.Logger with secure handling.
// verbose selects slog.LevelDebug; otherwise only warnings and errors are logged.
func NewSecureLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose)), opts...))
}

// NewSecureJSONLogger creates a new slog.Logger with secure handling
// that outputs JSON format.
func NewSecureJSONLogger(w io.Writer, verbose bool, opts ...HandlerOption) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose)), opts...))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
