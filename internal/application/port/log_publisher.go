package port

import (
	"context"
	"time"
)

// LogLevel - уровень записи лога
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// Ключи полей лога, которые выносятся в LogEntry для поиска по профилю и разговору
const (
	LogFieldProfileID = "profile_id"
	LogFieldSessionID = "session_id"
	LogFieldMetric    = "metric"
	LogFieldError     = "error"
)

// LogEntry - запись лога для внешней системы.
// ProfileID, SessionID и Metric связывают запись с профилем, разговором и метрикой;
// остальные пары ключ-значение лежат в Fields.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	ProfileID string
	SessionID string
	Metric    string
	Error     string
	Fields    map[string]interface{}
}

// NewLogEntry раскладывает пары ключ-значение логгера по полям записи
func NewLogEntry(ts time.Time, level LogLevel, msg string, kv map[string]interface{}) LogEntry {
	entry := LogEntry{Timestamp: ts, Level: level, Message: msg}

	fields := make(map[string]interface{}, len(kv))
	for key, value := range kv {
		text, isString := value.(string)
		switch {
		case key == LogFieldProfileID && isString:
			entry.ProfileID = text
		case key == LogFieldSessionID && isString:
			entry.SessionID = text
		case key == LogFieldMetric && isString:
			entry.Metric = text
		case key == LogFieldError && isString:
			entry.Error = text
		default:
			fields[key] = value
		}
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry
}

// LogPublisher отправляет записи лога во внешнюю систему (CloudWatch Logs)
type LogPublisher interface {
	// Publish отправляет одну запись
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch отправляет пачку записей с учетом лимитов приемника
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush отправляет буфер; вызывается при остановке
	Flush(ctx context.Context) error
}
