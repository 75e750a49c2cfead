package network

import (
	"fmt"
	"math"

	"github.com/chrisdamba/ridetopo/internal/models"
	"gonum.org/v1/gonum/graph/simple"
)

type builder struct {
	g   *simple.UndirectedGraph
	pos map[int64]Node
}

func newBuilder() *builder {
	return &builder{g: simple.NewUndirectedGraph(), pos: make(map[int64]Node)}
}

func (b *builder) node(id int64, x, y float64) {
	if b.g.Node(id) == nil {
		b.g.AddNode(simple.Node(id))
	}
	b.pos[id] = Node{X: x, Y: y}
}

func (b *builder) edge(u, v int64) {
	b.g.SetEdge(b.g.NewEdge(simple.Node(u), simple.Node(v)))
}

func (b *builder) build(name, kind string) *Network {
	return FromGraph(name, kind, b.g, b.pos)
}

// Ring is a cycle of n nodes placed on the unit circle.
func Ring(name string, n int) (*Network, error) {
	if n < 3 {
		return nil, fmt.Errorf("ring needs at least 3 nodes, got %d", n)
	}
	b := newBuilder()
	for i := 0; i < n; i++ {
		phi := 2 * math.Pi * float64(i) / float64(n)
		b.node(int64(i), math.Cos(phi), math.Sin(phi))
	}
	for i := 0; i < n; i++ {
		b.edge(int64(i), int64((i+1)%n))
	}
	return b.build(name, models.KindRing), nil
}

// Line is a path of n nodes.
func Line(name string, n int) (*Network, error) {
	if n < 2 {
		return nil, fmt.Errorf("line needs at least 2 nodes, got %d", n)
	}
	b := newBuilder()
	for i := 0; i < n; i++ {
		b.node(int64(i), float64(i), 0)
	}
	for i := 0; i+1 < n; i++ {
		b.edge(int64(i), int64(i+1))
	}
	return b.build(name, models.KindLine), nil
}

// Star has a hub (node 0) and the given number of leaves.
func Star(name string, leaves int) (*Network, error) {
	if leaves < 1 {
		return nil, fmt.Errorf("star needs at least one leaf, got %d", leaves)
	}
	b := newBuilder()
	b.node(0, 0, 0)
	for i := 1; i <= leaves; i++ {
		phi := 2 * math.Pi * float64(i-1) / float64(leaves)
		b.node(int64(i), math.Cos(phi), math.Sin(phi))
		b.edge(0, int64(i))
	}
	return b.build(name, models.KindStar), nil
}

// Grid is a rows x cols square lattice with 4-neighbourhood.
func Grid(name string, rows, cols int) (*Network, error) {
	if rows < 1 || cols < 1 || rows*cols < 2 {
		return nil, fmt.Errorf("grid %dx%d is too small", rows, cols)
	}
	b := newBuilder()
	id := func(r, c int) int64 { return int64(r*cols + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b.node(id(r, c), float64(c), float64(r))
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				b.edge(id(r, c), id(r, c+1))
			}
			if r+1 < rows {
				b.edge(id(r, c), id(r+1, c))
			}
		}
	}
	return b.build(name, models.KindGrid), nil
}

// TriangularLattice has m rows and n columns of triangles, laid out like the
// networkx triangular lattice: (m+1) rows of (n+1)/2+1 nodes, with the
// dangling nodes of odd rows removed when n is odd.
func TriangularLattice(name string, m, n int) (*Network, error) {
	if m < 1 || n < 1 {
		return nil, fmt.Errorf("triangular lattice %dx%d is too small", m, n)
	}
	cols := (n + 1) / 2
	id := func(i, j int) int64 { return int64(j*(cols+1) + i) }

	b := newBuilder()
	for j := 0; j <= m; j++ {
		for i := 0; i <= cols; i++ {
			x := float64(i) + 0.5*float64(j%2)
			y := float64(j) * math.Sqrt(3) / 2
			b.node(id(i, j), x, y)
		}
	}
	for j := 0; j <= m; j++ {
		for i := 0; i < cols; i++ {
			b.edge(id(i, j), id(i+1, j))
		}
	}
	for j := 0; j < m; j++ {
		for i := 0; i <= cols; i++ {
			b.edge(id(i, j), id(i, j+1))
		}
	}
	for j := 1; j < m; j += 2 {
		for i := 0; i < cols; i++ {
			b.edge(id(i, j), id(i+1, j+1))
		}
	}
	for j := 0; j < m; j += 2 {
		for i := 0; i < cols; i++ {
			b.edge(id(i+1, j), id(i, j+1))
		}
	}
	if n%2 == 1 {
		for j := 1; j <= m; j += 2 {
			b.g.RemoveNode(id(cols, j))
			delete(b.pos, id(cols, j))
		}
	}
	return b.build(name, models.KindTrigrid), nil
}
