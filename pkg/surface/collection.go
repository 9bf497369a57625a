package surface

import (
	"slices"
	"sync"
)

// Collection is an ordered list of nodes, bottom first. It is safe for
// concurrent use; collections are compared by identity, so always pass
// *Collection around.
type Collection struct {
	mu    sync.RWMutex
	nodes []*Node
}

// NewCollection creates a collection holding nodes in order.
func NewCollection(nodes ...*Node) *Collection {
	return &Collection{nodes: slices.Clone(nodes)}
}

// Len returns the number of nodes.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// At returns node i.
func (c *Collection) At(i int) *Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodes[i]
}

// Nodes returns a snapshot of the nodes in order.
func (c *Collection) Nodes() []*Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.nodes)
}

// Append adds nodes at the top.
func (c *Collection) Append(nodes ...*Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append(c.nodes, nodes...)
}

// Index returns the position of n, or -1.
func (c *Collection) Index(n *Node) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Index(c.nodes, n)
}

// Remove deletes n and reports whether it was present.
func (c *Collection) Remove(n *Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.nodes, n)
	if i < 0 {
		return false
	}
	c.nodes = slices.Delete(c.nodes, i, i+1)
	return true
}

// Insert places nodes at position i, clamped to the collection bounds.
func (c *Collection) Insert(i int, nodes ...*Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i = max(0, min(i, len(c.nodes)))
	c.nodes = slices.Insert(c.nodes, i, nodes...)
}
