package services

import (
	"fmt"
	"sync"
	"time"

	"netmon-dashboard/backend/system"
)

// Event types shown in the dashboard's event log.
const (
	EventInfo    = "info"
	EventSuccess = "success"
	EventWarning = "warning"
	EventError   = "error"
)

const DefaultEventLogSize = 100

type SystemEvent struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, warning, error, success
	Message string `json:"message"`
}

// EventLog keeps the most recent operator-facing events, newest first, and
// mirrors each one to the log file.
type EventLog struct {
	mu     sync.RWMutex
	events *RollingBuffer[SystemEvent]
	now    func() time.Time
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogSize
	}
	return &EventLog{
		events: NewRollingBuffer[SystemEvent](capacity),
		now:    time.Now,
	}
}

// Add records an event.
func (l *EventLog) Add(eventType, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.events.Push(SystemEvent{
		Time:    l.now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	})
	l.mu.Unlock()

	switch eventType {
	case EventError:
		system.Error("%s", message)
	case EventWarning:
		system.Warn("%s", message)
	default:
		system.Info("%s", message)
	}
}

// List returns a copy of the log, newest first.
func (l *EventLog) List() []SystemEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events.Items()
}
