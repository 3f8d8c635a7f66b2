// Package driver contains the collaborators that feed scroll progress
// into a scrubber. A driver only produces events; the consumer decides
// what to paint.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ivlev/scrubreel/internal/mapping"
)

type Kind int

const (
	KindProgress Kind = iota
	KindResize
)

// Event is one update from the host: a new progress value or a new
// viewport size in CSS pixels.
type Event struct {
	Kind     Kind
	Progress float64
	Width    int
	Height   int
}

// Emit hands an event to the consumer. Drivers call it from their own
// goroutine.
type Emit func(Event)

type Driver interface {
	Run(ctx context.Context, emit Emit) error
}

// Options carries everything the built-in drivers need.
type Options struct {
	// timeline
	Duration time.Duration
	FPS      int
	Ease     string
	ScrubLag float64
	Window   mapping.Window
	Realtime bool

	// mqtt
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

type Factory func(opts Options) (Driver, error)

var (
	ErrUnknownDriver   = errors.New("unknown driver")
	ErrDuplicateDriver = errors.New("driver already registered")
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a driver factory under name.
func Register(name string, f Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDriver, name)
	}
	registry[name] = f
	return nil
}

// New builds the driver registered under name.
func New(name string, opts Options) (Driver, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, name)
	}
	return f(opts)
}

// Names lists registered drivers.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
