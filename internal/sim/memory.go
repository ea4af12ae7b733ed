package sim

import "sync"

// Memory is a string-keyed value store backing one memory tier of an actor or
// card. Handlers run single-threaded on the event loop, but host tooling (the
// inspector, the tick driver) may read concurrently, so access is guarded.
//
// Create with new(Memory); the internal map is lazily initialized on first
// write.
type Memory struct {
	mu   sync.RWMutex
	data map[string]any
}

func (m *Memory) init() {
	if m.data == nil {
		m.data = make(map[string]any)
	}
}

// Get retrieves a value. Returns nil if the key doesn't exist.
func (m *Memory) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil
	}
	return m.data[key]
}

// Set stores a value.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.data[key] = value
}

// Has reports whether the key exists.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return false
	}
	_, ok := m.data[key]
	return ok
}

// Delete removes a key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return
	}
	delete(m.data, key)
}

// Keys returns all keys in unspecified order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
}

// Snapshot returns a shallow copy of the current contents.
func (m *Memory) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}
