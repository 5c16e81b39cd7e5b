package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	lg := GetLogger().WithField("component", component)
	if len(config) > 0 {
		lg = lg.WithFields(config)
	}
	lg.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// LogSessionState records an orchestrator state transition
func LogSessionState(lg Logger, identity, from, to string) {
	lg.WithFields(map[string]interface{}{
		"identity": identity,
		"from":     from,
		"to":       to,
	}).Debug("Session state changed")
}

// LogCollectionProgress logs the running totals of one list traversal
func LogCollectionProgress(lg Logger, list string, collected, scrolls, stale int) {
	lg.WithFields(map[string]interface{}{
		"list":      list,
		"collected": collected,
		"scrolls":   scrolls,
		"stale":     stale,
	}).Debug("Collection progress")
}

// LogStop logs why a traversal ended
func LogStop(lg Logger, list, reason string, collected int, elapsed time.Duration) {
	lg.WithFields(map[string]interface{}{
		"list":      list,
		"reason":    reason,
		"collected": collected,
		"elapsed":   elapsed.Round(time.Millisecond).String(),
	}).Info("Collection stopped")
}

// LogMetrics logs performance metrics
func LogMetrics(operation string, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"type":      "metrics",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	GetLogger().InfoWithFields("Performance metrics", fields)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                    {}
func (nopLogger) Info(string)                                     {}
func (nopLogger) Warn(string)                                     {}
func (nopLogger) Error(string)                                    {}
func (nopLogger) Fatal(string)                                    {}
func (n nopLogger) WithField(string, interface{}) Logger          { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger      { return n }
func (n nopLogger) WithError(error) Logger                        { return n }
func (n nopLogger) WithContext(context.Context) Logger            { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{})  {}
func (nopLogger) InfoWithFields(string, map[string]interface{})   {}
func (nopLogger) WarnWithFields(string, map[string]interface{})   {}
func (nopLogger) ErrorWithFields(string, map[string]interface{})  {}
func (nopLogger) FatalWithFields(string, map[string]interface{})  {}
func (nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
