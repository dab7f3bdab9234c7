// Package embedding holds what the remote embedding adapters share. The
// adapters themselves live in the provider subpackages.
package embedding

import "sync/atomic"

// Model names an embedding model and tracks its vector size, either known
// up front or learned from the first response. Adapters embed it to get
// ModelName and Dimensions. It is safe for concurrent use.
type Model struct {
	name string
	dims atomic.Int64
}

// NewModel starts with dims, or with an unknown size when dims is 0.
func NewModel(name string, dims int) *Model {
	m := &Model{name: name}
	m.dims.Store(int64(max(dims, 0)))
	return m
}

func (m *Model) ModelName() string { return m.name }

// Dimensions is 0 until the size is known.
func (m *Model) Dimensions() int { return int(m.dims.Load()) }

// Observe learns the size from vectors if it is still unknown.
func (m *Model) Observe(vectors [][]float32) {
	if len(vectors) > 0 && len(vectors[0]) > 0 {
		m.dims.CompareAndSwap(0, int64(len(vectors[0])))
	}
}
