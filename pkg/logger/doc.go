// Package logger provides structured logging for nekodl.
//
// It wraps zerolog behind a small Logger interface so that components can
// carry contextual fields (provider, url, path) without depending on zerolog
// directly:
//
//	log := logger.GetLogger().
//	    WithField("component", "downloader").
//	    WithField("provider", "nekobot")
//
//	log.DebugWithFields("Download completed", map[string]interface{}{
//	    "path":     "images/abc.png",
//	    "duration": time.Since(start),
//	})
//
// The global logger is configured once by the CLI through Initialize. Until
// then GetLogger returns a console logger at error level, which matches the
// default verbosity of the command line tool. Output goes to stderr so that
// listings and the final summary on stdout stay clean.
package logger
