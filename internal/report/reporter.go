package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"dral/internal/logging"
)

// Exclusion describes rows dropped from a release table and why.
type Exclusion struct {
	Stage string
	// EventType is a stable machine-readable key such as "conversation_missing_audio".
	EventType string
	// Subject and Reason fill in "These <Subject> were ignored because they <Reason>".
	Subject string
	Reason  string
	Columns []string
	Rows    [][]string
}

// Headline is the one-line summary printed above the exclusion table.
func (e Exclusion) Headline() string {
	return fmt.Sprintf("These %s were ignored because they %s:", e.Subject, e.Reason)
}

// Reporter receives exclusions from pipeline stages.
type Reporter interface {
	Exclude(ctx context.Context, ex Exclusion)
}

// Console renders exclusions as tables to a writer and logs each one.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
	seen   []Exclusion
}

// NewConsole returns a reporter writing to out. A nil logger disables logging.
func NewConsole(out io.Writer, logger *slog.Logger) *Console {
	return &Console{out: out, logger: logging.NewComponentLogger(logger, "report")}
}

// Exclude prints ex and records it.
func (c *Console) Exclude(ctx context.Context, ex Exclusion) {
	if len(ex.Rows) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, ex)
	if c.out != nil {
		fmt.Fprintln(c.out, ex.Headline())
		fmt.Fprintln(c.out, Table(ex.Columns, ex.Rows, nil))
	}
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "rows excluded", ex.EventType,
		logging.Stage(ex.Stage),
		logging.String("reason", ex.Reason),
		logging.Int("rows", len(ex.Rows)),
	)
}

// Exclusions returns every exclusion reported so far.
func (c *Console) Exclusions() []Exclusion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Exclusion(nil), c.seen...)
}

// Collector records exclusions without printing them.
type Collector struct {
	mu    sync.Mutex
	items []Exclusion
}

func (c *Collector) Exclude(_ context.Context, ex Exclusion) {
	if len(ex.Rows) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, ex)
}

// Exclusions returns the collected exclusions in report order.
func (c *Collector) Exclusions() []Exclusion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Exclusion(nil), c.items...)
}

// ByEvent returns the collected exclusions with the given event type.
func (c *Collector) ByEvent(eventType string) []Exclusion {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Exclusion
	for _, ex := range c.items {
		if ex.EventType == eventType {
			out = append(out, ex)
		}
	}
	return out
}

// Discard drops every exclusion.
type Discard struct{}

func (Discard) Exclude(context.Context, Exclusion) {}
