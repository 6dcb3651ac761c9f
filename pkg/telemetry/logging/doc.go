// Package logging provides structured logging with context fields and
// redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON, text, and console output
//   - Context fields (trace_id, span_id, provider, pattern, bundle_version)
//     attached to every record logged with a context
//   - Redaction of credentials and personal data in attribute values
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithSpanID(ctx, sc.SpanID().String())
//	logger.InfoContext(ctx, "Translated span", "status", "matched")
//
// Library packages accept a *slog.Logger; pass logger.Slog().
//
// # Redaction
//
// When Redact is enabled, string values are scrubbed before they are
// written:
//
//   - API keys: sk-abc123xyz → sk-***
//   - Emails: user@example.com → u***@example.com
//   - SSN: 123-45-6789 → ***-**-****
//   - Bearer tokens: Bearer abc → Bearer ***
//
// Values under keys such as "password", "token", or "api_key" are masked
// entirely.
package logging
