package observability

import (
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the liveness surface.
type Metrics struct {
	start         time.Time
	mu            sync.Mutex
	commandCount  map[string]int64
	errorCount    map[string]int64
	ticketsOpened int64
	ticketsClosed int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		start:        time.Now(),
		commandCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordCommand increments the counter for one inbound command or
// interaction.
func (m *Metrics) RecordCommand(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCount[name]++
}

// RecordError increments error counters keyed by scope and error code.
func (m *Metrics) RecordError(scope, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[scope+"|"+code]++
}

// RecordTicketOpened increments the opened-ticket counter.
func (m *Metrics) RecordTicketOpened() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketsOpened++
}

// RecordTicketClosed increments the closed-ticket counter.
func (m *Metrics) RecordTicketClosed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketsClosed++
}

// Uptime returns how long the process has been running.
func (m *Metrics) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.start)
}

// Snapshot returns aggregate counters for status reporting.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var commands, errs int64
	for _, n := range m.commandCount {
		commands += n
	}
	for _, n := range m.errorCount {
		errs += n
	}
	return map[string]int64{
		"commands_handled": commands,
		"errors":           errs,
		"tickets_opened":   m.ticketsOpened,
		"tickets_closed":   m.ticketsClosed,
	}
}
