package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnknownProvider is returned by New for an unregistered provider tag.
var ErrUnknownProvider = errors.New("unknown catalog provider")

// Factory builds a provider from options.
type Factory func(opts Options, logger zerolog.Logger) Provider

var (
	mu       sync.RWMutex
	registry = make(map[Kind]Factory)
)

// Register adds a provider variant. It's called at startup.
func Register(kind Kind, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[kind]; exists {
		// Panic is appropriate here as it's a developer error during setup.
		panic(fmt.Sprintf("catalog provider '%s' is already registered", kind))
	}
	registry[kind] = factory
}

// New builds the provider registered under tag.
func New(tag string, opts Options, logger zerolog.Logger) (Provider, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(tag)))
	mu.RLock()
	factory, ok := registry[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
	}
	return factory(opts, logger), nil
}

// Kinds lists the registered provider tags.
func Kinds() []Kind {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnregisterAll clears the registry. Used by tests.
func UnregisterAll() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[Kind]Factory)
}
