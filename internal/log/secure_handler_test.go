package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// a made-up value with the shape of an account token
const fakeToken = "MTIzNDU2Nzg5MDEyMzQ1Njc4.GaBcDe.abcdefghijklmnopqrstuvwxyz0123"

func newTestLogger(buf *bytes.Buffer, secrets ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(buf, nil), secrets...))
}

func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "token key", key: "token", value: "abc", wantMask: true},
		{name: "authorization key", key: "Authorization", value: "abc", wantMask: true},
		{name: "secret key", key: "client_secret", value: "abc", wantMask: true},
		{name: "credential key", key: "credential", value: "abc", wantMask: true},
		{name: "prefixed token key", key: "discord_token", value: "abc", wantMask: true},
		{name: "token_prefix allowed", key: "token_prefix", value: "DISCORD_TOKEN_", wantMask: false},
		{name: "account key", key: "account", value: "7", wantMask: false},
		{name: "reason key", key: "reason", value: "unauthorized", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			newTestLogger(&buf).Info("test", tt.key, tt.value)
			out := buf.String()

			masked := strings.Contains(out, MaskValue)
			if masked != tt.wantMask {
				t.Errorf("masked = %v, want %v; output: %s", masked, tt.wantMask, out)
			}
			if tt.wantMask && strings.Contains(out, tt.key+"="+tt.value) {
				t.Errorf("value leaked: %s", out)
			}
		})
	}
}

func TestSecureHandler_MasksTokenShapedValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{"bare token", fakeToken},
		{"token inside text", "request with " + fakeToken + " failed"},
		{"mfa token", "mfa.abcdefghijklmnopqrstuvwxyz"},
		{"bearer header", "Bearer abcdefghijklmnopqrstuvwxyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			newTestLogger(&buf).Info("test", "detail", tt.value)
			out := buf.String()

			if !strings.Contains(out, MaskValue) {
				t.Errorf("expected mask in output: %s", out)
			}
			if strings.Contains(out, "abcdefghijklmnopqrstuvwxyz") {
				t.Errorf("token leaked: %s", out)
			}
		})
	}
}

func TestSecureHandler_KeepsSurroundingText(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf).Info("test", "detail", "request with "+fakeToken+" failed")

	if !strings.Contains(buf.String(), "request with "+MaskValue+" failed") {
		t.Errorf("surrounding text not preserved: %s", buf.String())
	}
}

func TestSecureHandler_RegisteredSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "short-secret", "  ", "")

	logger.Info("loaded short-secret from env", "detail", "value=short-secret")
	out := buf.String()

	if strings.Contains(out, "short-secret") {
		t.Errorf("registered secret leaked: %s", out)
	}
	if strings.Count(out, MaskValue) != 2 {
		t.Errorf("expected message and attribute masked: %s", out)
	}
}

func TestSecureHandler_ScrubsErrors(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, "s3cr3t").Warn("probe failed", "error", errors.New("header s3cr3t rejected"))

	out := buf.String()
	if strings.Contains(out, "s3cr3t") {
		t.Errorf("secret in error leaked: %s", out)
	}
	if !strings.Contains(out, "rejected") {
		t.Errorf("error text should survive: %s", out)
	}
}

func TestSecureHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf).Info("test", slog.Group("request",
		slog.String("authorization", "abc"),
		slog.String("url", "https://example.com"),
	))

	out := buf.String()
	if !strings.Contains(out, "request.authorization="+MaskValue) {
		t.Errorf("grouped key not masked: %s", out)
	}
	if !strings.Contains(out, "request.url=https://example.com") {
		t.Errorf("grouped safe value changed: %s", out)
	}
}

func TestSecureHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "s3cr3t").With("token", "abc", "component", "prober")
	logger.Info("test", "detail", "s3cr3t")

	out := buf.String()
	if strings.Contains(out, "token=abc") || strings.Contains(out, "s3cr3t") {
		t.Errorf("WithAttrs or inherited secrets leaked: %s", out)
	}
	if !strings.Contains(out, "component=prober") {
		t.Errorf("safe attr missing: %s", out)
	}
}

func TestSecureHandler_NilHandler(t *testing.T) {
	h := NewSecureHandler(nil)
	if h.handler == nil {
		t.Error("nil handler should default to slog.Default().Handler()")
	}
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatJSON, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be suppressed without verbose: %s", buf.String())
	}

	New(&buf, FormatJSON, true).Debug("shown")
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("verbose JSON logger should emit debug: %s", buf.String())
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatText, false, "s3cr3t").Info("hello", "detail", "s3cr3t")

	out := buf.String()
	if !strings.Contains(out, "msg=hello") {
		t.Errorf("expected text output: %s", out)
	}
	if strings.Contains(out, "s3cr3t") {
		t.Errorf("secret leaked: %s", out)
	}
}
