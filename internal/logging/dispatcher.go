package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// badKey marks a value whose key was missing or not a string, as slog does.
const badKey = "!BADKEY"

// DispatcherLogger feeds the frame dispatcher's key/value logging into
// zerolog. Every event carries component=dispatcher.
type DispatcherLogger struct {
	logger zerolog.Logger
}

func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields pairs up keys and values. A trailing value without a key and a
// pair with a non-string key are kept under badKey; the last one wins.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			fields[badKey] = keysAndValues[i]
			break
		}
		key, ok := keysAndValues[i].(string)
		if !ok {
			fields[badKey] = fmt.Sprintf("%v=%v", keysAndValues[i], keysAndValues[i+1])
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
