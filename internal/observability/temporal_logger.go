package observability

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TemporalLogger adapts a zerolog.Logger to the Temporal SDK's
// log.Logger interface, which passes structured context as alternating
// key-value pairs.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger wraps logger for use as the SDK logger. Every entry
// carries component=temporal-sdk so SDK noise can be filtered.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Debug(), msg, keyvals)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Info(), msg, keyvals)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Warn(), msg, keyvals)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.emit(l.logger.Error(), msg, keyvals)
}

// emit attaches the SDK's key-value pairs to the event. Non-string keys
// are stringified, and a dangling key with no value is logged under a
// marker field rather than dropped.
func (l *TemporalLogger) emit(event *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}
		if i+1 < len(keyvals) {
			event = event.Interface(key, keyvals[i+1])
		} else {
			event = event.Str("dangling_key", key)
		}
	}
	event.Msg(msg)
}
