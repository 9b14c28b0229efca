package navquery

import (
	"testing"

	"github.com/arl/navkit/navmesh"
)

func TestNodePoolGetAndFind(t *testing.T) {
	pool := newNodePool(32, 8)

	n1 := pool.Node(navmesh.PolyRef(0x42), 0)
	if n1 == nil {
		t.Fatal("allocation in empty pool failed")
	}
	if pool.Node(navmesh.PolyRef(0x42), 0) != n1 {
		t.Error("second get for same (id,state) should return the same node")
	}

	// Same ref, different state: a distinct node.
	n2 := pool.Node(navmesh.PolyRef(0x42), 1)
	if n2 == nil || n2 == n1 {
		t.Fatal("distinct state should allocate a distinct node")
	}

	if pool.FindNode(navmesh.PolyRef(0x42), 1) != n2 {
		t.Error("FindNode missed an allocated node")
	}
	if pool.FindNode(navmesh.PolyRef(0x43), 0) != nil {
		t.Error("FindNode invented a node")
	}

	var nodes [4]*Node
	if got := pool.FindNodes(navmesh.PolyRef(0x42), nodes[:]); got != 2 {
		t.Errorf("FindNodes found %d nodes, want 2", got)
	}

	if pool.NodeCount() != 2 {
		t.Errorf("node count = %d, want 2", pool.NodeCount())
	}
}

func TestNodePoolIdx(t *testing.T) {
	pool := newNodePool(8, 4)

	if pool.NodeIdx(nil) != 0 {
		t.Error("nil node must map to index 0")
	}
	if pool.NodeAtIdx(0) != nil {
		t.Error("index 0 must map to nil")
	}

	n := pool.Node(navmesh.PolyRef(7), 0)
	idx := pool.NodeIdx(n)
	if idx == 0 {
		t.Fatal("live node got the reserved index 0")
	}
	if pool.NodeAtIdx(idx) != n {
		t.Error("NodeAtIdx(NodeIdx(n)) != n")
	}
}

func TestNodePoolExhaustion(t *testing.T) {
	pool := newNodePool(4, 4)

	for i := 0; i < 4; i++ {
		if pool.Node(navmesh.PolyRef(i+1), 0) == nil {
			t.Fatalf("allocation %d failed below capacity", i)
		}
	}
	if pool.Node(navmesh.PolyRef(99), 0) != nil {
		t.Error("allocation above capacity should return nil")
	}
	// Existing nodes are still retrievable from a full pool.
	if pool.Node(navmesh.PolyRef(1), 0) == nil {
		t.Error("full pool must still return existing nodes")
	}
}

func TestNodePoolClear(t *testing.T) {
	pool := newNodePool(8, 4)
	pool.Node(navmesh.PolyRef(1), 0)
	pool.Node(navmesh.PolyRef(2), 0)

	pool.Clear()
	if pool.NodeCount() != 0 {
		t.Errorf("count after clear = %d, want 0", pool.NodeCount())
	}
	if pool.FindNode(navmesh.PolyRef(1), 0) != nil {
		t.Error("cleared pool should not find old nodes")
	}
}

func TestNodeQueueOrdering(t *testing.T) {
	pool := newNodePool(16, 8)
	queue := newNodeQueue(16)

	totals := []float32{5, 1, 4, 2, 8, 3}
	for i, total := range totals {
		n := pool.Node(navmesh.PolyRef(i+1), 0)
		n.Total = total
		queue.push(n)
	}

	want := []float32{1, 2, 3, 4, 5, 8}
	for i, w := range want {
		if queue.empty() {
			t.Fatalf("queue empty after %d pops, want %d", i, len(want))
		}
		if got := queue.pop(); got.Total != w {
			t.Fatalf("pop %d returned total %f, want %f", i, got.Total, w)
		}
	}
	if !queue.empty() {
		t.Error("queue should be empty")
	}
}

func TestNodeQueueModify(t *testing.T) {
	pool := newNodePool(16, 8)
	queue := newNodeQueue(16)

	a := pool.Node(navmesh.PolyRef(1), 0)
	a.Total = 10
	b := pool.Node(navmesh.PolyRef(2), 0)
	b.Total = 20
	queue.push(a)
	queue.push(b)

	// Decrease-key: b becomes the cheapest.
	b.Total = 5
	queue.modify(b)

	if got := queue.pop(); got != b {
		t.Fatalf("pop after modify returned total %f, want the modified node", got.Total)
	}
	if got := queue.pop(); got != a {
		t.Fatalf("second pop returned total %f, want the other node", got.Total)
	}
}
