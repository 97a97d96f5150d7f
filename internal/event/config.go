// Package event holds a page's event-loop configuration: the entry-point
// name the host invokes each tick, the ordered event-category subscriptions,
// and the tick delay.
package event

import (
	"sync"
	"time"
)

// Category is an event-category code delivered to the page entry point.
// UI elements use their kind code as the category.
type Category uint64

const (
	CategoryClose  Category = 0
	CategoryTimer  Category = 1
	CategoryResize Category = 2
	CategoryOpen   Category = 3
)

// DefaultTickDelay is used when the page never sets one (~30 ticks/second).
const DefaultTickDelay = 33 * time.Millisecond

// Config is one page's event configuration.
type Config struct {
	mu            sync.RWMutex
	entryPoint    string
	subscriptions []Category
	tickDelay     time.Duration
	delaySet      bool
}

// NewConfig creates an unset configuration.
func NewConfig() *Config {
	return &Config{}
}

// SetEventLoop records the entry-point function name.
func (c *Config) SetEventLoop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryPoint = name
}

// EventLoopName returns the recorded entry-point name.
func (c *Config) EventLoopName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entryPoint
}

// Subscribe appends a category to the ordered subscription list and returns
// its index. Duplicates are allowed; idempotence is the caller's problem.
func (c *Config) Subscribe(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = append(c.subscriptions, cat)
	return len(c.subscriptions) - 1
}

// Subscriptions returns the subscription list in registration order.
func (c *Config) Subscriptions() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Category, len(c.subscriptions))
	copy(out, c.subscriptions)
	return out
}

// SetTickDelay sets the render-tick delay.
func (c *Config) SetTickDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickDelay = d
	c.delaySet = true
}

// TickDelay returns the configured delay, or the default when unset.
func (c *Config) TickDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.delaySet {
		return DefaultTickDelay
	}
	return c.tickDelay
}
