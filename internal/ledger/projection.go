package ledger

import "sync"

// Projection is the in-memory entity map the ledger core mutates. It supports
// concurrent insertion and lookup across entities; operations within a single
// entity must be serialized by the caller.
type Projection struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewProjection returns an empty projection.
func NewProjection() *Projection {
	return &Projection{entities: make(map[string]*Entity)}
}

// Put stores the entity, replacing any previous materialization with the same
// id. Replay of an entity-created event resets the entity to its initial
// state, matching event-sourced rebuild semantics.
func (p *Projection) Put(e *Entity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entities[e.ID] = e
}

// Get returns the entity for the id, or ErrEntityNotFound.
func (p *Projection) Get(id string) (*Entity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return e, nil
}

// Range invokes fn for every entity. fn must not mutate entities; it is
// intended for read-side queries.
func (p *Projection) Range(fn func(e *Entity)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.entities {
		fn(e)
	}
}
