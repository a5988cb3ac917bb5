// Package logging wraps log/slog with the service's conventions: a
// configurable level and format (text or JSON), plus service and
// version attributes on every record.
//
// Output goes to stderr by default because the CLI prints parameter
// tables and CSV rows on stdout.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("device opened", "index", 0)
package logging
