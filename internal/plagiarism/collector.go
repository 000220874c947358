package plagiarism

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrorCollector receives progress lines and local errors during ingestion.
type ErrorCollector interface {
	// Print emits a summary line and/or a detail line. Empty strings are skipped.
	Print(summary, detail string)
	AddError(message string)
	HasErrors() bool
	PrintCollectedErrors()
	SetCurrentSubmissionName(name string)
}

// Collector is the zerolog backed ErrorCollector. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	current string
	errors  []string
	printed int
}

func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{logger: logger}
}

func (c *Collector) Print(summary, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if summary != "" {
		c.logger.Info().Msg(summary)
	}
	if detail != "" {
		c.logger.Debug().Msg(detail)
	}
}

func (c *Collector) AddError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := message
	if c.current != "" {
		entry = fmt.Sprintf("[%s] %s", c.current, message)
	}
	c.errors = append(c.errors, entry)

	c.logger.Warn().
		Str("submission", c.current).
		Msg(message)
}

func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// PrintCollectedErrors logs every error not printed by a previous call.
func (c *Collector) PrintCollectedErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.errors[c.printed:] {
		c.logger.Error().Msg(entry)
	}
	c.printed = len(c.errors)
}

func (c *Collector) SetCurrentSubmissionName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = name
}

// Errors returns a copy of all collected errors in the order they were added.
func (c *Collector) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.errors))
	copy(out, c.errors)
	return out
}
