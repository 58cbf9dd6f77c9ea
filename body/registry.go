package body

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrUnknownEntity indicates an id or name that no loaded kernel covers
	// or that the engine cannot resolve.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrNotLoaded indicates a reference count underflow.
	ErrNotLoaded = errors.New("entity not loaded")
)

// NameResolver maps ids to names and back. The native engine implements it.
type NameResolver interface {
	ResolveIDToName(id int) (string, bool)
	ResolveNameToID(name string) (int, bool)
}

// Entity is an addressable body. Parent and children are not stored; ask
// the Registry, which derives them from the id and the live entities.
type Entity struct {
	ID       int
	Name     string
	Category Category
}

func (e Entity) String() string {
	return fmt.Sprintf("%s %s (ID %d)", e.Category, e.Name, e.ID)
}

type entry struct {
	entity Entity
	refs   int
}

// Registry reference-counts entities contributed by loaded kernels.
//
// Registry is not safe for concurrent use; the kernel registry serialises
// access to it.
type Registry struct {
	resolver   NameResolver
	entities   map[int]*entry
	byCategory map[Category]map[int]struct{}
}

// NewRegistry constructs an empty registry that resolves names through r.
func NewRegistry(r NameResolver) *Registry {
	return &Registry{
		resolver:   r,
		entities:   make(map[int]*entry),
		byCategory: make(map[Category]map[int]struct{}),
	}
}

// Make adds a reference to id. The first reference resolves the name and
// indexes the entity; if the name cannot be resolved nothing is recorded,
// so a later Make retries the lookup.
func (r *Registry) Make(id int) (Entity, error) {
	if e, ok := r.entities[id]; ok {
		e.refs++
		return e.entity, nil
	}

	name, ok := r.resolver.ResolveIDToName(id)
	if !ok {
		return Entity{}, fmt.Errorf("%w: no name for id %d", ErrUnknownEntity, id)
	}
	ent := Entity{ID: id, Name: name, Category: Classify(id)}
	r.entities[id] = &entry{entity: ent, refs: 1}
	for _, c := range categoriesOf(ent) {
		idx, ok := r.byCategory[c]
		if !ok {
			idx = make(map[int]struct{})
			r.byCategory[c] = idx
		}
		idx[id] = struct{}{}
	}
	return ent, nil
}

// Delete drops a reference to id and forgets the entity at zero.
func (r *Registry) Delete(id int) error {
	e, ok := r.entities[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotLoaded, id)
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(r.entities, id)
	for _, c := range categoriesOf(e.entity) {
		delete(r.byCategory[c], id)
		if len(r.byCategory[c]) == 0 {
			delete(r.byCategory, c)
		}
	}
	return nil
}

func categoriesOf(e Entity) []Category {
	if e.Category == CategoryBody {
		return []Category{CategoryBody}
	}
	return []Category{e.Category, CategoryBody}
}

// Get returns the live entity with the given id.
func (r *Registry) Get(id int) (Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	return e.entity, nil
}

// GetByName resolves name through the engine, falling back to a decimal id,
// and returns the live entity.
func (r *Registry) GetByName(name string) (Entity, error) {
	name = strings.TrimSpace(name)
	id, ok := r.resolver.ResolveNameToID(name)
	if !ok {
		n, err := strconv.Atoi(name)
		if err != nil {
			return Entity{}, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
		}
		id = n
	}
	return r.Get(id)
}

// RefCount returns how many kernels currently contribute id.
func (r *Registry) RefCount(id int) int {
	if e, ok := r.entities[id]; ok {
		return e.refs
	}
	return 0
}

// Parent returns the entity id is bound to. A live parent is returned as
// registered; otherwise the parent is built from its id, with the name
// resolved by the engine (empty if unresolvable). ok is false when the
// category has no parent.
func (r *Registry) Parent(id int) (Entity, bool) {
	pid, ok := ParentID(id)
	if !ok {
		return Entity{}, false
	}
	if e, ok := r.entities[pid]; ok {
		return e.entity, true
	}
	name, _ := r.resolver.ResolveIDToName(pid)
	return Entity{ID: pid, Name: name, Category: Classify(pid)}, true
}

// Children returns the live entities bound to id, ordered as ChildIDs.
func (r *Registry) Children(id int) []Entity {
	var out []Entity
	for _, cid := range ChildIDs(id) {
		if e, ok := r.entities[cid]; ok {
			out = append(out, e.entity)
		}
	}
	return out
}

// List returns the live entities of category c sorted by id.
func (r *Registry) List(c Category) []Entity {
	idx := r.byCategory[c]
	out := make([]Entity, 0, len(idx))
	for id := range idx {
		out = append(out, r.entities[id].entity)
	}
	slices.SortFunc(out, func(a, b Entity) int { return a.ID - b.ID })
	return out
}

// Len is the number of live entities.
func (r *Registry) Len() int { return len(r.entities) }
