package log

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// Output formats accepted by [New].
const (
	FormatJSON = "json"
	FormatText = "text"
)

// sensitiveKeywords mark an attribute key as carrying a secret.
var sensitiveKeywords = []string{
	"token", "authorization", "secret", "credential", "password", "passwd", "cookie",
}

// keyAllowlist holds keys that contain a keyword but never carry a secret.
var keyAllowlist = map[string]bool{
	"token_prefix": true,
}

// tokenPatterns match account token shapes anywhere inside a string.
var tokenPatterns = []*regexp.Regexp{
	// three dot-separated base64url segments (user and bot tokens)
	regexp.MustCompile(`[A-Za-z0-9_-]{23,28}\.[A-Za-z0-9_-]{6,7}\.[A-Za-z0-9_-]{27,}`),

	// legacy MFA tokens
	regexp.MustCompile(`mfa\.[A-Za-z0-9_-]{20,}`),

	// bearer / bot auth header values
	regexp.MustCompile(`(?i)\b(bearer|bot)\s+[A-Za-z0-9._-]{20,}`),
}

// SecureHandler wraps an slog.Handler and masks secrets in every record
// before the wrapped handler sees it.
type SecureHandler struct {
	handler slog.Handler
	secrets []string
}

// NewSecureHandler wraps handler. secrets are literal values that are
// masked wherever they appear; blank entries are ignored. If handler is nil,
// slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler, secrets ...string) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}

	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	// longest first so a secret that contains another is masked whole
	slices.SortFunc(kept, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	return &SecureHandler{handler: handler, secrets: slices.Compact(kept)}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's message and attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, h.scrub(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs masks attrs before handing them to the wrapped handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized), secrets: h.secrets}
}

// WithGroup returns a handler that opens group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = h.sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			if scrubbed := h.scrub(s); scrubbed != s {
				return slog.String(a.Key, scrubbed)
			}
		}
	case slog.KindAny:
		// errors and Stringers are rendered as text by handlers; scrub that text
		switch v := a.Value.Any().(type) {
		case error:
			if s := v.Error(); h.scrub(s) != s {
				return slog.String(a.Key, h.scrub(s))
			}
		case fmt.Stringer:
			if s := v.String(); h.scrub(s) != s {
				return slog.String(a.Key, h.scrub(s))
			}
		}
	}

	return a
}

// scrub masks registered secrets and token-shaped substrings in s.
func (h *SecureHandler) scrub(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, MaskValue)
	}
	for _, p := range tokenPatterns {
		s = p.ReplaceAllString(s, MaskValue)
	}
	return s
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if keyAllowlist[k] {
		return false
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

// New returns a logger writing format ("json" or "text") to w through a
// [SecureHandler]. The level is debug when verbose is set, info otherwise.
func New(w io.Writer, format string, verbose bool, secrets ...string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == FormatText {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewSecureHandler(base, secrets...))
}
