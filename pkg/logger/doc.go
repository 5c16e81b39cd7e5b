// Package logger wraps zerolog behind a small structured logging interface.
//
// A global logger is configured once from the logging section of the config
// and reached through GetLogger or the package-level helpers:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("identity", "jack").Info("Collection started")
//
// Components that want isolated output in tests take a Logger argument and
// receive NewTestLogger or NewNopLogger.
package logger
