// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// The level is held in a zap.AtomicLevel, so it can be raised or lowered
// while the server runs through LevelHandler.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	logger.Info("Server starting", zap.String("port", "8080"))
//	router.Use(logging.Middleware(logger.Logger))
package logging
