package layer

import (
	"sort"
	"sync"

	"github.com/dshills/econfctl/internal/keyfile"
)

// Manager holds loaded layers and provides merged access.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer      // Sorted by priority (ascending)
	merged *keyfile.File // Cached merged result
	dirty  bool          // Whether merged cache needs refresh
}

// NewManager creates a new layer manager.
func NewManager() *Manager {
	return &Manager{dirty: true}
}

// AddLayer adds a layer to the manager.
// Layers are kept sorted by priority; equal priorities keep insertion order.
func (m *Manager) AddLayer(layer *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = append(m.layers, layer)
	sort.SliceStable(m.layers, func(i, j int) bool {
		return m.layers[i].Priority < m.layers[j].Priority
	})
	m.dirty = true
}

// Layers returns a copy of all layers sorted by priority.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Layer, len(m.layers))
	copy(result, m.layers)
	return result
}

// LayerCount returns the number of layers.
func (m *Manager) LayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers)
}

// Merge combines all layers into a single view. The returned file is a copy
// owned by the caller.
func (m *Manager) Merge() *keyfile.File {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirty || m.merged == nil {
		result := keyfile.New()
		// Apply layers in priority order (lowest first, highest last)
		for _, layer := range m.layers {
			keyfile.Merge(result, layer.Data)
		}
		m.merged = result
		m.dirty = false
	}

	return m.merged.Clone()
}

// Get returns the effective value of key in group together with the layer
// that supplies it.
func (m *Manager) Get(group, key string) (string, *Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search layers from highest to lowest priority
	for i := len(m.layers) - 1; i >= 0; i-- {
		layer := m.layers[i]
		if layer.Data == nil {
			continue
		}
		if val, ok := layer.Data.Get(group, key); ok {
			return val, layer, true
		}
	}
	return "", nil, false
}

// WhichLayer returns the path of the fragment that provides group/key, or
// "" if no layer defines it.
func (m *Manager) WhichLayer(group, key string) string {
	_, layer, found := m.Get(group, key)
	if !found {
		return ""
	}
	return layer.Path
}
