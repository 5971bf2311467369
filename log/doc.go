// Package log provides the leveled logging interface used across ragrouter.
//
// Two implementations are available. DefaultLogger writes through the standard
// library logger with a "[ragrouter] " prefix; GologLogger forwards to a
// github.com/kataras/golog instance and is what the ragrouter binary installs.
//
//	glogger := golog.New()
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.ParseLevel(cfg.LogLevel))
//	log.SetDefaultLogger(logger)
//
//	log.Info("Inserted %d documents into the vector store.", n)
//
// Components that accept a Logger fall back to the package-level default when
// none is supplied, so wiring a logger once in main is enough.
package log
