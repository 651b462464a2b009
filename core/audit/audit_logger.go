package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event records one custody or verification action against a batch.
type Event struct {
	ID        string            `json:"eventId"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"eventType"` // e.g. "BatchCreate", "Transfer", "Verification"
	BatchNo   string            `json:"batchNo"`
	Actor     string            `json:"actor"`  // owner/operator identity, if known
	Result    string            `json:"result"` // "success", "failure", "partial"
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEvent fills in the id and timestamp.
func NewEvent(eventType, batchNo, actor, result, reason string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		BatchNo:   batchNo,
		Actor:     actor,
		Result:    result,
		Reason:    reason,
	}
}

// Logger is the interface for recording audit events.
type Logger interface {
	LogEvent(event Event)
}

// StdoutLogger is a simple implementation that logs to stdout.
type StdoutLogger struct{}

func (l *StdoutLogger) LogEvent(event Event) {
	fmt.Printf("[AUDIT] [%s] [%s] batch=%s actor=%s result=%s reason=%s\n",
		event.Timestamp.Format(time.RFC3339), event.EventType, event.BatchNo, event.Actor, event.Result, event.Reason)
}

// NewStdoutLogger returns a new StdoutLogger.
func NewStdoutLogger() Logger {
	return &StdoutLogger{}
}

// MultiLogger fans one event out to several sinks (e.g. stdout plus the
// store-backed trail).
type MultiLogger []Logger

func (m MultiLogger) LogEvent(event Event) {
	for _, l := range m {
		l.LogEvent(event)
	}
}
