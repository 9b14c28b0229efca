package navquery

import (
	assert "github.com/arl/assertgo"
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/navkit/navmesh"
)

// hashRef scrambles a polygon reference into a hash bucket index
// (Thomas Wang integer hash).
func hashRef(a navmesh.PolyRef) uint32 {
	a += ^(a << 15)
	a ^= (a >> 10)
	a += (a << 3)
	a ^= (a >> 6)
	a += ^(a << 11)
	a ^= (a >> 16)
	return uint32(a)
}

// nodeFlags mark a search node's membership in the open/closed sets.
type nodeFlags uint8

const (
	nodeOpen nodeFlags = 1 << iota
	nodeClosed
	// nodeParentDetached marks a node whose parent is not graph-adjacent
	// (it was reached through a raycast shortcut).
	nodeParentDetached
)

// nodeIndex addresses a node inside its pool. Index 0 in parent links
// means "no parent", so slot i is addressed as i+1 there.
type nodeIndex uint16

const nullIdx = ^nodeIndex(0)

const (
	nodeParentBits uint32 = 24
	nodeStateBits  uint32 = 2

	// maxStatesPerNode bounds how many nodes a single PolyRef may own,
	// distinguished by their state value.
	maxStatesPerNode int32 = 1 << nodeStateBits
)

// Node is one entry of a search: a polygon reference plus the cost bookkeeping
// A* and the Dijkstra variants need.
type Node struct {
	Pos   d3.Vec3 // position the search entered the polygon at
	Cost  float32 // cost from the search start (g)
	Total float32 // cost plus heuristic (f)
	PIdx  uint32  // index+1 of the parent node, 0 for none
	State uint8
	Flags nodeFlags
	ID    navmesh.PolyRef

	// idx is the node's own slot, fixed at pool construction.
	idx nodeIndex
}

// NodePool is a fixed-capacity arena of search nodes indexed by a hash on
// (PolyRef, state). It never frees or reallocates: Clear resets the hash
// and count, leaving the storage in place for the next query.
type NodePool struct {
	nodes       []Node
	first, next []nodeIndex
	maxNodes    int32
	hashSize    int32
	nodeCount   int32
}

func newNodePool(maxNodes, hashSize int32) *NodePool {
	assert.True(math32.NextPow2(uint32(hashSize)) == uint32(hashSize),
		"node pool hash size must be a power of 2")
	// nullIdx terminates the hash chains, so one fewer node is addressable
	// than the index type can hold.
	assert.True(maxNodes > 0 && maxNodes <= int32(nullIdx) &&
		maxNodes <= (1<<nodeParentBits)-1, "node pool capacity out of range")

	np := &NodePool{
		maxNodes: maxNodes,
		hashSize: hashSize,
	}
	np.nodes = make([]Node, maxNodes)
	for i := range np.nodes {
		np.nodes[i].Pos = d3.NewVec3()
		np.nodes[i].idx = nodeIndex(i)
	}
	np.next = make([]nodeIndex, maxNodes)
	np.first = make([]nodeIndex, hashSize)
	for i := range np.first {
		np.first[i] = nullIdx
	}
	for i := range np.next {
		np.next[i] = nullIdx
	}
	return np
}

// Clear forgets every node in O(hashSize) without releasing storage.
func (np *NodePool) Clear() {
	for i := range np.first {
		np.first[i] = nullIdx
	}
	np.nodeCount = 0
}

// Node returns the node for (id, state), allocating it on first use. A
// PolyRef can own up to maxStatesPerNode nodes, one per state value.
// Returns nil when the pool is exhausted.
func (np *NodePool) Node(id navmesh.PolyRef, state uint8) *Node {
	bucket := hashRef(id) & uint32(np.hashSize-1)
	for i := np.first[bucket]; i != nullIdx; i = np.next[i] {
		if np.nodes[i].ID == id && np.nodes[i].State == state {
			return &np.nodes[i]
		}
	}

	if np.nodeCount >= np.maxNodes {
		return nil
	}

	i := nodeIndex(np.nodeCount)
	np.nodeCount++

	node := &np.nodes[i]
	node.PIdx = 0
	node.Cost = 0
	node.Total = 0
	node.ID = id
	node.State = state
	node.Flags = 0

	np.next[i] = np.first[bucket]
	np.first[bucket] = i
	return node
}

// FindNode returns the node for (id, state), or nil if it was never
// allocated.
func (np *NodePool) FindNode(id navmesh.PolyRef, state uint8) *Node {
	bucket := hashRef(id) & uint32(np.hashSize-1)
	for i := np.first[bucket]; i != nullIdx; i = np.next[i] {
		if np.nodes[i].ID == id && np.nodes[i].State == state {
			return &np.nodes[i]
		}
	}
	return nil
}

// FindNodes collects into nodes every allocated node for id, across all
// states, and returns how many were found.
func (np *NodePool) FindNodes(id navmesh.PolyRef, nodes []*Node) int {
	var n int
	bucket := hashRef(id) & uint32(np.hashSize-1)
	for i := np.first[bucket]; i != nullIdx; i = np.next[i] {
		if np.nodes[i].ID == id {
			if n >= len(nodes) {
				return n
			}
			nodes[n] = &np.nodes[i]
			n++
		}
	}
	return n
}

// NodeIdx returns node's parent-link index: its slot plus one, 0 for nil.
func (np *NodePool) NodeIdx(node *Node) uint32 {
	if node == nil {
		return 0
	}
	return uint32(node.idx) + 1
}

// NodeAtIdx resolves a parent-link index back to its node, nil for 0.
func (np *NodePool) NodeAtIdx(idx uint32) *Node {
	if idx == 0 {
		return nil
	}
	return &np.nodes[idx-1]
}

// MaxNodes returns the pool capacity.
func (np *NodePool) MaxNodes() int32 { return np.maxNodes }

// NodeCount returns the number of nodes allocated since the last Clear.
func (np *NodePool) NodeCount() int32 { return np.nodeCount }
