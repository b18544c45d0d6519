// Package ecs provides the in-memory entity-component store the
// simulation systems read and write. Systems access it from the
// simulation goroutine only; the store is still mutex-guarded so status
// and test code can inspect it safely.
package ecs

import (
	"reflect"
	"sort"
	"sync"
)

// Entity identifies a simulated object. The zero value is never a live
// entity.
type Entity uint64

// NullEntity is the invalid entity.
const NullEntity Entity = 0

// Store maps entities to typed components and tracks parent/child
// relationships between entities.
type Store struct {
	mu       sync.RWMutex
	next     Entity
	alive    map[Entity]struct{}
	parent   map[Entity]Entity
	children map[Entity]map[Entity]struct{}
	tables   map[reflect.Type]map[Entity]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		alive:    make(map[Entity]struct{}),
		parent:   make(map[Entity]Entity),
		children: make(map[Entity]map[Entity]struct{}),
		tables:   make(map[reflect.Type]map[Entity]any),
	}
}

// NewEntity allocates a new top-level entity.
func (s *Store) NewEntity() Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	e := s.next
	s.alive[e] = struct{}{}
	return e
}

// NewChild allocates a new entity parented to the given entity.
func (s *Store) NewChild(parent Entity) Entity {
	e := s.NewEntity()
	s.SetParent(e, parent)
	return e
}

// SetParent reparents child under parent. Both must be alive.
func (s *Store) SetParent(child, parent Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alive[child]; !ok {
		return
	}
	if _, ok := s.alive[parent]; !ok {
		return
	}
	if old, ok := s.parent[child]; ok {
		delete(s.children[old], child)
	}
	s.parent[child] = parent
	if s.children[parent] == nil {
		s.children[parent] = make(map[Entity]struct{})
	}
	s.children[parent][child] = struct{}{}
}

// Parent returns the parent of an entity, or NullEntity.
func (s *Store) Parent(e Entity) Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent[e]
}

// Alive reports whether the entity exists in the store.
func (s *Store) Alive(e Entity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.alive[e]
	return ok
}

// RemoveEntity removes an entity, all of its components, and recursively
// all of its descendants. Removing a dead entity is a no-op.
func (s *Store) RemoveEntity(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(e)
}

func (s *Store) removeLocked(e Entity) {
	if _, ok := s.alive[e]; !ok {
		return
	}
	for child := range s.children[e] {
		s.removeLocked(child)
	}
	delete(s.children, e)
	if p, ok := s.parent[e]; ok {
		delete(s.children[p], e)
		delete(s.parent, e)
	}
	for _, table := range s.tables {
		delete(table, e)
	}
	delete(s.alive, e)
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Write sets the component of type T on an entity, creating it if absent
// and overwriting it otherwise. Writes to dead entities are dropped.
func Write[T any](s *Store, e Entity, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alive[e]; !ok {
		return
	}
	key := typeKey[T]()
	table := s.tables[key]
	if table == nil {
		table = make(map[Entity]any)
		s.tables[key] = table
	}
	table[e] = v
}

// Read returns the component of type T on an entity.
func Read[T any](s *Store, e Entity) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tables[typeKey[T]()][e]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Has reports whether the entity carries a component of type T.
func Has[T any](s *Store, e Entity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[typeKey[T]()][e]
	return ok
}

// Remove deletes the component of type T from an entity.
func Remove[T any](s *Store, e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[typeKey[T]()], e)
}

// EntitiesWith returns all entities carrying a component of type T, in
// ascending entity order so iteration is deterministic across ticks.
func EntitiesWith[T any](s *Store) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table := s.tables[typeKey[T]()]
	out := make([]Entity, 0, len(table))
	for e := range table {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// First returns the lowest-numbered entity carrying a component of type
// T, or NullEntity.
func First[T any](s *Store) (Entity, bool) {
	all := EntitiesWith[T](s)
	if len(all) == 0 {
		return NullEntity, false
	}
	return all[0], true
}

// ChildrenWith returns the direct children of parent that carry a
// component of type T, in ascending entity order.
func ChildrenWith[T any](s *Store, parent Entity) []Entity {
	s.mu.RLock()
	table := s.tables[typeKey[T]()]
	out := make([]Entity, 0, len(s.children[parent]))
	for child := range s.children[parent] {
		if _, ok := table[child]; ok {
			out = append(out, child)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
