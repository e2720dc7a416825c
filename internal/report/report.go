// Package report collects user visible messages raised while reconciling.
package report

import (
	"sync"

	"github.com/breeze-rmm/pkgreconcile/internal/logging"
	"github.com/breeze-rmm/pkgreconcile/internal/resolvable"
)

var log = logging.L("report")

// Severity of a collected message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Message is one user visible report.
type Message struct {
	Severity Severity
	Level    resolvable.Level
	Text     string
}

// Collector is a resolvable.Reporter that keeps every message in order and
// mirrors it to the log.
type Collector struct {
	mu       sync.Mutex
	messages []Message
}

var _ resolvable.Reporter = (*Collector)(nil)

func (c *Collector) Error(msg string) {
	log.Error(msg)
	c.add(Message{Severity: SeverityError, Level: resolvable.LevelAttention, Text: msg})
}

func (c *Collector) Warning(msg string, level resolvable.Level) {
	log.Warn(msg, "level", level.String())
	c.add(Message{Severity: SeverityWarning, Level: level, Text: msg})
}

func (c *Collector) add(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

// Messages returns a copy of the collected messages.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Errors returns the text of every collected error.
func (c *Collector) Errors() []string {
	var out []string
	for _, m := range c.Messages() {
		if m.Severity == SeverityError {
			out = append(out, m.Text)
		}
	}
	return out
}
