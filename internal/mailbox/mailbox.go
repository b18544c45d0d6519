// Package mailbox provides the mutex-guarded single-slot buffers that
// carry commands from transport callback goroutines to the simulation
// goroutine. A burst of writes between ticks collapses to the most
// recent value: drop-and-overwrite, never a backlog.
package mailbox

import "sync"

// Mailbox is a single-slot, last-write-wins buffer for one value.
type Mailbox[T any] struct {
	mu         sync.Mutex
	value      T
	full       bool
	overwrites uint64
}

// Put stores a value, replacing any value not yet taken.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	if m.full {
		m.overwrites++
	}
	m.value = v
	m.full = true
	m.mu.Unlock()
}

// Take removes and returns the buffered value, if any.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		var zero T
		return zero, false
	}
	m.full = false
	return m.value, true
}

// Overwrites returns how many buffered values were replaced before being
// taken.
func (m *Mailbox[T]) Overwrites() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overwrites
}

// Keyed is a map of last-write-wins slots sharing one lock.
type Keyed[K comparable, V any] struct {
	mu         sync.Mutex
	values     map[K]V
	overwrites uint64
}

// Put stores a value under key, replacing any value not yet drained.
func (k *Keyed[K, V]) Put(key K, v V) {
	k.mu.Lock()
	if k.values == nil {
		k.values = make(map[K]V)
	}
	if _, exists := k.values[key]; exists {
		k.overwrites++
	}
	k.values[key] = v
	k.mu.Unlock()
}

// Drain returns all buffered values and empties the map. It returns nil
// when nothing is buffered.
func (k *Keyed[K, V]) Drain() map[K]V {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := k.values
	k.values = nil
	return out
}

// Len returns the number of buffered keys.
func (k *Keyed[K, V]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.values)
}

// Overwrites returns how many buffered values were replaced before being
// drained.
func (k *Keyed[K, V]) Overwrites() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.overwrites
}
