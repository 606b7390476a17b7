package registry

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrNotFound is returned when no machine matches the requested name.
var ErrNotFound = errors.New("machine not found")

// Storage persists the whole machine table.
type Storage interface {
	Load() ([]Machine, error)
	Save([]Machine) error
}

// Registry is the shared, mutable machine table. Reads take a snapshot;
// status writes are serialized by a single lock over the table.
type Registry struct {
	mu       sync.RWMutex
	machines []Machine
	index    map[string]int
	storage  Storage
}

// New builds a registry from machines. Names must be unique.
func New(machines []Machine, storage Storage) (*Registry, error) {
	index := make(map[string]int, len(machines))
	rows := make([]Machine, len(machines))
	for i, m := range machines {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, dup := index[m.Name]; dup {
			return nil, fmt.Errorf("row %d: duplicate machine name '%s'", i+1, m.Name)
		}
		st, _ := ParseStatus(string(m.Status))
		m.Status = st
		index[m.Name] = i
		rows[i] = m
	}
	return &Registry{
		machines: rows,
		index:    index,
		storage:  storage,
	}, nil
}

// Load reads all machines from storage and builds a registry bound to it.
func Load(storage Storage) (*Registry, error) {
	if storage == nil {
		return nil, fmt.Errorf("registry storage is nil")
	}
	machines, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load machines: %w", err)
	}
	r, err := New(machines, storage)
	if err != nil {
		return nil, fmt.Errorf("invalid machine data: %w", err)
	}
	log.Printf("[registry.Load] %d machines loaded", len(machines))
	return r, nil
}

// Snapshot returns a copy of every machine in registry order.
func (r *Registry) Snapshot() []Machine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Machine, len(r.machines))
	copy(out, r.machines)
	return out
}

// Len returns the number of machines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}

// Get returns the machine called name.
func (r *Registry) Get(name string) (Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return Machine{}, false
	}
	return r.machines[i], true
}

// SetStatus overwrites the status of the named machine and returns the
// status it replaced. Last write wins.
func (r *Registry) SetStatus(name string, status Status) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[name]
	if !ok {
		return "", fmt.Errorf("set status of '%s': %w", name, ErrNotFound)
	}
	prev := r.machines[i].Status
	r.machines[i].Status = status
	return prev, nil
}

// Flush writes the current table to storage.
func (r *Registry) Flush() error {
	if r.storage == nil {
		return fmt.Errorf("registry has no storage to flush to")
	}
	snapshot := r.Snapshot()
	if err := r.storage.Save(snapshot); err != nil {
		return fmt.Errorf("failed to flush registry: %w", err)
	}
	log.Printf("[registry.Flush] %d machines saved", len(snapshot))
	return nil
}
