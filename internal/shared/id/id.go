// Package id generates ULID trace identifiers for the page host.
//
// Every page run and every host call gets a lexicographically sortable id
// with a type prefix, so interleaved logs from several pods and viewports
// can be correlated after the fact.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PageID identifies one page process run.
type PageID string

// CallID identifies one host call for log correlation.
type CallID string

// EventID identifies one delivered UI event.
type EventID string

const (
	PagePrefix  = "page"
	CallPrefix  = "call"
	EventPrefix = "evt"
)

// Generator produces ULIDs from a shared entropy source.
type Generator struct {
	entropy io.Reader
	mu      sync.Mutex
}

var (
	defaultGen *Generator
	once       sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGen = NewGenerator(rand.Reader)
	})
	return defaultGen
}

// NewGenerator creates a generator over the given entropy source. Tests can
// pass a deterministic reader.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates one ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// Prefixed creates a prefixed ULID string such as "call_01J....".
func (g *Generator) Prefixed(prefix string) string {
	return prefix + "_" + g.Generate().String()
}

// NewPageID generates an id for a page process run.
func NewPageID() PageID {
	return PageID(Default().Prefixed(PagePrefix))
}

// NewCallID generates an id for one host call.
func NewCallID() CallID {
	return CallID(Default().Prefixed(CallPrefix))
}

// NewEventID generates an id for one delivered event.
func NewEventID() EventID {
	return EventID(Default().Prefixed(EventPrefix))
}

func (id PageID) String() string  { return string(id) }
func (id CallID) String() string  { return string(id) }
func (id EventID) String() string { return string(id) }

// Timestamp extracts the creation time from a prefixed or bare ULID string.
func Timestamp(s string) (time.Time, error) {
	if i := strings.IndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
