// Package log provides a simple, leveled logging interface for fundlens.
//
// Five levels are supported, in order of increasing severity: Debug, Info,
// Warn, Error, and None (which disables output entirely). Messages below the
// configured level are filtered out before formatting.
//
// Basic usage:
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("ingesting dataset %s", name)
//	logger.Error("ingestion failed: %v", err)
//
// For callers who prefer github.com/kataras/golog, a thin wrapper is provided:
//
//	glogger := golog.New()
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.LogLevelDebug)
//
// A package-level logger is available through log.Info, log.Warn, and friends;
// it can be replaced with SetDefaultLogger.
package log
