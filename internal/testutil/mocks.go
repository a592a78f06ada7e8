package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// MockLogger implements logging.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level   string
	Message string
}

func (m *MockLogger) record(level string, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.record("debug", format, args...)
}
func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.record("info", format, args...)
}
func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.record("warn", format, args...)
}
func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.record("error", format, args...)
}

// Entries returns a copy of the entries logged at level.
func (m *MockLogger) Entries(level string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.Logs {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any entry at level contains substr.
func (m *MockLogger) Contains(level, substr string) bool {
	for _, msg := range m.Entries(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
