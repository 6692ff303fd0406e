// Package log provides a slog handler that keeps account tokens out of log
// output.
//
// [SecureHandler] wraps any slog.Handler and masks:
//   - attributes whose key names a secret (token, authorization, secret,
//     credential, password)
//   - substrings that look like an account token, wherever they appear in a
//     string or error value
//   - exact secret values registered with the handler, such as the tokens
//     loaded from the environment at startup
//
// Usage:
//
//	logger := log.New(os.Stderr, log.FormatJSON, verbose, secrets...)
//	logger.Info("probe failed", "account", "7", "authorization", tok) // masked
package log
