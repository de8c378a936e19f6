package registry

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/miradorstack/mirador-twin/internal/models"
)

type entry struct {
	twin   models.Twin
	buffer *RollingBuffer

	mu      sync.Mutex // serialises record operations for one twin
	failure *models.FailureState
}

// Registry owns the set of monitored twins and their rolling buffers.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string
	capacity int
	clock    clock.Clock
	newID    func() string
}

// New creates an empty registry whose buffers hold capacity snapshots each.
func New(capacity int, clk clock.Clock) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		entries:  make(map[string]*entry),
		capacity: capacity,
		clock:    clk,
		newID:    uuid.NewString,
	}
}

// Register creates a twin with a fresh id and an empty buffer.
// The name is stored as given; only the empty string is rejected.
func (r *Registry) Register(name string) (models.Twin, error) {
	if name == "" {
		return models.Twin{}, fmt.Errorf("register twin: name is required: %w", models.ErrInvalidArgument)
	}

	twin := models.Twin{
		ID:        r.newID(),
		Name:      name,
		CreatedAt: r.clock.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[twin.ID] = &entry{twin: twin, buffer: NewRollingBuffer(r.capacity)}
	r.order = append(r.order, twin.ID)
	return twin, nil
}

// List returns a copy of the registered twins in registration order.
func (r *Registry) List() []models.Twin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	twins := make([]models.Twin, 0, len(r.order))
	for _, id := range r.order {
		twins = append(twins, r.entries[id].twin)
	}
	return twins
}

// Len returns the number of registered twins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Get looks up a twin by id.
func (r *Registry) Get(id string) (models.Twin, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.Twin{}, err
	}
	return e.twin, nil
}

// RecordSuccess appends s to the twin's buffer and clears any failure state.
func (r *Registry) RecordSuccess(id string, s models.Snapshot) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer.Append(s)
	e.failure = nil
	return nil
}

// RecordFailure overwrites the twin's failure state. The buffer is left untouched.
func (r *Registry) RecordFailure(id string, failure error) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = &models.FailureState{Err: failure, RecordedAt: r.clock.Now().UTC()}
	return nil
}

// Failure returns the twin's current failure state, if any.
func (r *Registry) Failure(id string) (*models.FailureState, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failure == nil {
		return nil, nil
	}
	state := *e.failure
	return &state, nil
}

// Latest returns the twin's most recent snapshot.
func (r *Registry) Latest(id string) (models.Snapshot, bool, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.Snapshot{}, false, err
	}
	s, ok := e.buffer.Latest()
	return s, ok, nil
}

// Recent returns up to k of the twin's most recent snapshots, oldest first.
func (r *Registry) Recent(id string, k int) ([]models.Snapshot, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.buffer.Recent(k), nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("twin %q: %w", id, models.ErrNotFound)
	}
	return e, nil
}
