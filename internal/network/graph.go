package network

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gammazero/deque"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var log = logrus.WithField("module", "network")

var (
	ErrTooSmall     = errors.New("network has fewer than two nodes")
	ErrDisconnected = errors.New("network is not connected")
	ErrUnknownNode  = errors.New("unknown node")
)

// Node is a vertex position. Street networks store lon/lat in X/Y, synthetic
// lattices their drawing coordinates.
type Node struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type bfsTree struct {
	dist   []int32
	parent []int32
}

// Network is an undirected, unweighted graph with nodes indexed 0..n-1 and a
// sorted adjacency list, so traversals are deterministic.
type Network struct {
	Name string
	Kind string

	nodes []Node
	adj   [][]int
	edges int

	trees *xsync.MapOf[int, *bfsTree]
}

func newNetwork(name, kind string, nodes []Node, adj [][]int) *Network {
	edges := 0
	for u := range adj {
		sort.Ints(adj[u])
		edges += len(adj[u])
	}
	return &Network{
		Name:  name,
		Kind:  kind,
		nodes: nodes,
		adj:   adj,
		edges: edges / 2,
		trees: xsync.NewMapOf[int, *bfsTree](),
	}
}

// FromGraph freezes a gonum graph. Node ids are re-indexed in ascending order;
// pos may be nil.
func FromGraph(name, kind string, g graph.Undirected, pos map[int64]Node) *Network {
	ids := make([]int64, 0, g.Nodes().Len())
	nodes := g.Nodes()
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	coords := make([]Node, len(ids))
	adj := make([][]int, len(ids))
	for i, id := range ids {
		if pos != nil {
			coords[i] = pos[id]
		}
		neighbours := g.From(id)
		for neighbours.Next() {
			v := neighbours.Node().ID()
			if v == id {
				continue
			}
			adj[i] = append(adj[i], index[v])
		}
	}
	return newNetwork(name, kind, coords, adj)
}

// Graph returns a gonum copy of the network.
func (n *Network) Graph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for u := range n.adj {
		g.AddNode(simple.Node(u))
	}
	for u, vs := range n.adj {
		for _, v := range vs {
			if u < v {
				g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
			}
		}
	}
	return g
}

func (n *Network) NumNodes() int { return len(n.nodes) }

func (n *Network) NumEdges() int { return n.edges }

func (n *Network) Node(u int) Node { return n.nodes[u] }

func (n *Network) Neighbors(u int) []int { return n.adj[u] }

// Edges returns every edge once with u < v, ordered by u then v.
func (n *Network) Edges() [][2]int {
	out := make([][2]int, 0, n.edges)
	for u, vs := range n.adj {
		for _, v := range vs {
			if u < v {
				out = append(out, [2]int{u, v})
			}
		}
	}
	return out
}

func (n *Network) String() string {
	return fmt.Sprintf("%s (%s, %d nodes, %d edges)", n.Name, n.Kind, len(n.nodes), n.edges)
}

func (n *Network) checkNode(u int) error {
	if u < 0 || u >= len(n.nodes) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, u)
	}
	return nil
}

func (n *Network) bfs(src int) *bfsTree {
	t := &bfsTree{
		dist:   make([]int32, len(n.adj)),
		parent: make([]int32, len(n.adj)),
	}
	for i := range t.dist {
		t.dist[i] = -1
		t.parent[i] = -1
	}
	t.dist[src] = 0

	var q deque.Deque[int]
	q.PushBack(src)
	for q.Len() > 0 {
		u := q.PopFront()
		for _, v := range n.adj[u] {
			if t.dist[v] >= 0 {
				continue
			}
			t.dist[v] = t.dist[u] + 1
			t.parent[v] = int32(u)
			q.PushBack(v)
		}
	}
	return t
}

func (n *Network) tree(src int) *bfsTree {
	t, _ := n.trees.LoadOrCompute(src, func() *bfsTree {
		return n.bfs(src)
	})
	return t
}

// Distance returns the hop distance between u and v, or -1 if v is not
// reachable from u.
func (n *Network) Distance(u, v int) (int, error) {
	if err := n.checkNode(u); err != nil {
		return 0, err
	}
	if err := n.checkNode(v); err != nil {
		return 0, err
	}
	return int(n.tree(u).dist[v]), nil
}

// Path returns a shortest path from u to v including both ends. Among equal
// length paths the first one discovered by the BFS over sorted neighbours is
// returned.
func (n *Network) Path(u, v int) ([]int, error) {
	if err := n.checkNode(u); err != nil {
		return nil, err
	}
	if err := n.checkNode(v); err != nil {
		return nil, err
	}
	t := n.tree(u)
	if t.dist[v] < 0 {
		return nil, fmt.Errorf("%w: no path from %d to %d", ErrDisconnected, u, v)
	}
	path := make([]int, t.dist[v]+1)
	for i, cur := len(path)-1, v; i >= 0; i-- {
		path[i] = cur
		cur = int(t.parent[cur])
	}
	return path, nil
}

// Validate checks that the network can host a simulation.
func (n *Network) Validate() error {
	if len(n.nodes) < 2 {
		return fmt.Errorf("%s: %w", n.Name, ErrTooSmall)
	}
	t := n.bfs(0)
	for _, d := range t.dist {
		if d < 0 {
			return fmt.Errorf("%s: %w", n.Name, ErrDisconnected)
		}
	}
	return nil
}

// AverageShortestPathLength is the mean hop distance over all ordered pairs
// of distinct nodes. BFS trees are computed concurrently and not cached.
func (n *Network) AverageShortestPathLength(ctx context.Context, workers int) (float64, error) {
	size := len(n.nodes)
	if size < 2 {
		return 0, fmt.Errorf("%s: %w", n.Name, ErrTooSmall)
	}
	if workers < 1 {
		workers = 1
	}

	sums := make([]int64, size)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for src := 0; src < size; src++ {
		src := src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := n.bfs(src)
			var sum int64
			for _, d := range t.dist {
				if d < 0 {
					return fmt.Errorf("%s: %w", n.Name, ErrDisconnected)
				}
				sum += int64(d)
			}
			sums[src] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, s := range sums {
		total += s
	}
	return float64(total) / float64(size*(size-1)), nil
}

// LargestComponent returns the largest connected component, re-indexed. Ties
// go to the component containing the lowest node index.
func (n *Network) LargestComponent() *Network {
	components := topo.ConnectedComponents(n.Graph())
	if len(components) <= 1 {
		return n
	}

	best := -1
	var bestMin int64
	for i, c := range components {
		minID := int64(len(n.nodes))
		for _, node := range c {
			if node.ID() < minID {
				minID = node.ID()
			}
		}
		if best < 0 || len(c) > len(components[best]) || (len(c) == len(components[best]) && minID < bestMin) {
			best, bestMin = i, minID
		}
	}

	keep := make([]int, 0, len(components[best]))
	for _, node := range components[best] {
		keep = append(keep, int(node.ID()))
	}
	sort.Ints(keep)
	log.Debugf("%s: keeping largest component with %d of %d nodes", n.Name, len(keep), len(n.nodes))
	return n.subgraph(keep)
}

func (n *Network) subgraph(keep []int) *Network {
	index := make(map[int]int, len(keep))
	for i, u := range keep {
		index[u] = i
	}
	nodes := make([]Node, len(keep))
	adj := make([][]int, len(keep))
	for i, u := range keep {
		nodes[i] = n.nodes[u]
		for _, v := range n.adj[u] {
			if j, ok := index[v]; ok {
				adj[i] = append(adj[i], j)
			}
		}
	}
	return newNetwork(n.Name, n.Kind, nodes, adj)
}
