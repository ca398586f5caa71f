// Package logging provides structured logging helpers built on log/slog.
//
// Attribute constructors keep key names consistent across services:
//
//	logger.Info("messages listed",
//	    logging.Service("gmail"),
//	    logging.Count(len(msgs)))
//
// Email addresses are never logged in clear text; use UserHash or Domain.
package logging
