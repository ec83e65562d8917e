// Package progress defines the capability interface the installer uses
// to report download progress, generalized from the teacher's
// pkg/display Task (Log/SetStage/Progress/Done) down to the two
// operations spec §4.9/§9 actually specify: inc and inc_length. Letting
// the CLI's terminal widget, a silent no-op, or a test double all
// implement the same tiny interface is the point — this package never
// renders anything itself.
package progress

import "sync"

// Sink accumulates download-progress counters across concurrently
// installing packages.
type Sink interface {
	// IncLength adds n bytes to the known total.
	IncLength(n int64)
	// Inc adds n bytes to the completed total.
	Inc(n int64)
}

// Noop discards all progress, for silent mode.
type Noop struct{}

func (Noop) IncLength(int64) {}
func (Noop) Inc(int64)       {}

// Counter is a concurrency-safe Sink that just accumulates totals, used
// both as the default aggregator and in tests.
type Counter struct {
	mu       sync.Mutex
	length   int64
	complete int64
}

func (c *Counter) IncLength(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.length += n
}

func (c *Counter) Inc(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.complete += n
}

// Length returns the accumulated total length.
func (c *Counter) Length() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.length
}

// Complete returns the accumulated completed bytes.
func (c *Counter) Complete() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}
