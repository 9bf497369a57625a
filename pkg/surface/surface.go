package surface

import (
	"sync"

	"github.com/matzehuels/mapstack/pkg/proj"
)

// Surface is the rendering target of a reconcile.
type Surface interface {
	// Nodes returns the live collection.
	Nodes() *Collection

	// SetNodes replaces the live collection.
	SetNodes(c *Collection)

	// RemoveNode removes n from the live collection in place.
	RemoveNode(n *Node) bool

	// Projection is the coordinate system nodes are drawn in.
	Projection() proj.Projection

	// Viewport is the size of the drawing area in pixels.
	Viewport() (width, height int)
}

// Stats counts the mutations a [Memory] surface has seen.
type Stats struct {
	Commits  int // SetNodes calls
	Removals int // successful RemoveNode calls
}

// Memory is an in-process surface.
type Memory struct {
	mu     sync.RWMutex
	nodes  *Collection
	proj   proj.Projection
	width  int
	height int
	stats  Stats
}

// NewMemory creates an empty surface.
func NewMemory(p proj.Projection, width, height int) *Memory {
	return &Memory{nodes: NewCollection(), proj: p, width: width, height: height}
}

func (m *Memory) Nodes() *Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes
}

func (m *Memory) SetNodes(c *Collection) {
	if c == nil {
		c = NewCollection()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = c
	m.stats.Commits++
}

func (m *Memory) RemoveNode(n *Node) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.nodes.Remove(n) {
		return false
	}
	m.stats.Removals++
	return true
}

func (m *Memory) Projection() proj.Projection { return m.proj }

func (m *Memory) Viewport() (int, int) { return m.width, m.height }

// Stats returns the mutation counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

var _ Surface = (*Memory)(nil)
