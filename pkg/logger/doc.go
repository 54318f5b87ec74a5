// Package logger provides the structured logging used across gridpreview.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can swap in a TestLogger or NewNopLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("username", "natgeo").Info("Fetching posts")
//
// Console output is pretty-printed by default; set Format to "json" for
// machine-readable output. When File is set every entry is also appended to
// that file.
package logger
