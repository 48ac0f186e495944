package ui

import (
	"fmt"
	"time"
)

// Category classifies a log entry for display.
type Category string

const (
	CategoryInfo     Category = "info"
	CategoryWarning  Category = "warning"
	CategoryCritical Category = "critical"
	CategorySuccess  Category = "success"
)

var categoryPrefix = map[Category]string{
	CategoryInfo:     "  ",
	CategoryWarning:  "!",
	CategoryCritical: "x",
	CategorySuccess:  "+",
}

// LogEntry is one timestamped event.
type LogEntry struct {
	Sol       int
	Timestamp string
	Message   string
	Category  Category
}

func (e LogEntry) String() string {
	prefix, ok := categoryPrefix[e.Category]
	if !ok {
		prefix = "  "
	}
	return fmt.Sprintf("[Sol %03d %s] %s %s", e.Sol, e.Timestamp, prefix, e.Message)
}

// EventLog is a bounded event history with Sol timestamps. Oldest
// entries fall off the front.
type EventLog struct {
	entries    []LogEntry
	maxEntries int
	currentSol int
	now        func() time.Time
}

// NewEventLog creates a log keeping at most maxEntries entries.
func NewEventLog(maxEntries int) *EventLog {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &EventLog{
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetSol updates the Sol stamped onto subsequent entries.
func (l *EventLog) SetSol(sol int) {
	l.currentSol = sol
}

// Add appends an entry stamped with the current Sol and wall time.
func (l *EventLog) Add(message string, category Category) {
	l.entries = append(l.entries, LogEntry{
		Sol:       l.currentSol,
		Timestamp: l.now().Format("15:04:05"),
		Message:   message,
		Category:  category,
	})
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
}

// Info logs an informational event.
func (l *EventLog) Info(message string) { l.Add(message, CategoryInfo) }

// Warning logs a warning event.
func (l *EventLog) Warning(message string) { l.Add(message, CategoryWarning) }

// Critical logs a critical event.
func (l *EventLog) Critical(message string) { l.Add(message, CategoryCritical) }

// Success logs a success event.
func (l *EventLog) Success(message string) { l.Add(message, CategorySuccess) }

// Recent returns the newest n entries, oldest first.
func (l *EventLog) Recent(n int) []LogEntry {
	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return l.entries[len(l.entries)-n:]
}

// Len returns the number of retained entries.
func (l *EventLog) Len() int { return len(l.entries) }
