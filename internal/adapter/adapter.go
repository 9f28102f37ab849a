// Package adapter defines the contract between the version generator and the
// engines that transform media content, plus a registry keyed by mime
// category.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fruitsalade/mediagen/internal/filter"
)

// ErrUnsupportedOperation is wrapped by adapters rejecting an instruction.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Processed is an adapter result waiting to be persisted. A result that also
// implements io.Closer is closed once it has been written or abandoned.
type Processed interface {
	io.WriterTo

	// MimeType reports the type of the bytes WriteTo produces.
	MimeType() string
}

// Adapter applies an ordered instruction list to a source file. It decides
// which operation names it understands; clone is never passed in.
type Adapter interface {
	Apply(ctx context.Context, source string, instructions filter.InstructionSet) (Processed, error)
}

// Func adapts a function to Adapter.
type Func func(ctx context.Context, source string, instructions filter.InstructionSet) (Processed, error)

// Apply calls f.
func (f Func) Apply(ctx context.Context, source string, instructions filter.InstructionSet) (Processed, error) {
	return f(ctx, source, instructions)
}

// Unsupported returns an error naming the rejected operation.
func Unsupported(name string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedOperation, name)
}

// Registry resolves the adapter for a mime category. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register sets the adapter for category, replacing any previous one.
func (r *Registry) Register(category string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[category] = a
}

// Lookup returns the adapter for category.
func (r *Registry) Lookup(category string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[category]
	return a, ok
}

// Categories lists the registered categories sorted by name.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
