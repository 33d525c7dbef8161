// Package log provides slog loggers that never print the audit credential.
//
// The SecureHandler masks attribute values whose key names a credential
// (cookie, authorization, token, ...) or whose value looks like one
// (JWTs, bearer tokens, session cookies):
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("probe", "target", "a.pdf", "cookie", cfg.Cookie) // cookie=***REDACTED***
package log
