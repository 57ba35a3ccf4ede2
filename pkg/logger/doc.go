// Package logger provides a structured logging interface for the scraper.
//
// It wraps zerolog and is always injected: every component receives a
// Logger at construction time and there is no package-level instance.
// Levels are applied per logger, so two loggers with different levels can
// coexist in one process (handy in tests).
//
// Basic Usage:
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//
//	log.WithField("query", "cats").Info("resolving candidates")
//	log.InfoWithFields("download completed", map[string]interface{}{
//	    "file": "image_1.jpg",
//	    "size": 1024000,
//	})
//
// Output is a colored console stream on stderr by default, JSON lines when
// Format is "json", and JSON lines appended to File when one is configured.
//
// For tests, NewTestLogger captures messages and NewNopLogger discards them.
package logger
