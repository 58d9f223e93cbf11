// Package test provides a fake backend.Backend for exercising
// higher-level components (internal/index, internal/chunked,
// internal/driver) without touching a real filesystem or S3 bucket.
package test

import (
	"context"
	"sync"

	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Memory is an in-memory backend.Backend, useful for tests that assert
// on exactly what was written and deleted.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Writes and Deletes record every call, in order, for assertions.
	Writes  []WriteCall
	Deletes [][]string
}

// WriteCall records one Write invocation.
type WriteCall struct {
	Name string
	Data []byte
}

// New returns an empty Memory backend.
func New() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

var _ backend.Backend = &Memory{}

func (m *Memory) Has(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[name]
	return ok, nil
}

func (m *Memory) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.objects[name] = cp
	m.Writes = append(m.Writes, WriteCall{Name: name, Data: cp})
	return nil
}

func (m *Memory) Delete(_ context.Context, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		delete(m.objects, name)
	}
	m.Deletes = append(m.Deletes, append([]string(nil), names...))
	return nil
}

// Get returns the current contents of name and whether it exists.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	return append([]byte(nil), data...), ok
}

// Names returns the set of all currently-stored object names.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	return names
}

// Flaky wraps a Memory backend and makes a set number of upcoming Write
// calls fail with a fixed error.
type Flaky struct {
	*Memory
	mu       sync.Mutex
	failNext int
	err      error
}

// NewFlaky wraps a Memory backend so the next n Write calls fail with
// err before succeeding, exercising internal/backend/retry.
func NewFlaky(m *Memory, n int, err error) *Flaky {
	return &Flaky{Memory: m, failNext: n, err: err}
}

var _ backend.Backend = &Flaky{}

func (f *Flaky) Write(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return errors.Wrap(f.err, "test.Flaky.Write")
	}
	f.mu.Unlock()
	return f.Memory.Write(ctx, name, data)
}
