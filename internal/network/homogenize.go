package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrisdamba/ridetopo/internal/models"
)

// RawEdge is a street segment between two intersections, length in meters.
type RawEdge struct {
	From   int
	To     int
	Length float64
}

// RawGraph is a weighted street graph with lon/lat node positions, as
// extracted from OSM before homogenization.
type RawGraph struct {
	Nodes []Node
	Edges []RawEdge
}

type pair struct{ u, v int }

func orderedPair(u, v int) pair {
	if u > v {
		u, v = v, u
	}
	return pair{u, v}
}

// Homogenize turns a weighted street graph into an unweighted network whose
// edges all correspond to roughly targetEdge meters:
//   - intersections closer than cgMeters are merged into their centroid,
//   - self loops are dropped and parallel edges reduced to the shortest,
//   - an edge of length L becomes max(1, round(L/targetEdge)) unit edges,
//   - only the largest connected component is kept.
func Homogenize(name string, raw *RawGraph, cg models.CoarseGraining) (*Network, error) {
	if raw == nil || len(raw.Nodes) < 2 {
		return nil, fmt.Errorf("%s: %w", name, ErrTooSmall)
	}
	if cg.TargetEdgeLength <= 0 {
		return nil, fmt.Errorf("%s: target edge length must be positive, got %g", name, cg.TargetEdgeLength)
	}

	clusterOf, centroids := coarseGrain(raw.Nodes, cg.Meters)

	shortest := make(map[pair]float64)
	for _, e := range raw.Edges {
		cu, cv := clusterOf[e.From], clusterOf[e.To]
		if cu == cv {
			continue
		}
		key := orderedPair(cu, cv)
		if l, ok := shortest[key]; !ok || e.Length < l {
			shortest[key] = e.Length
		}
	}
	keys := make([]pair, 0, len(shortest))
	for k := range shortest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].u != keys[j].u {
			return keys[i].u < keys[j].u
		}
		return keys[i].v < keys[j].v
	})

	b := newBuilder()
	for i, c := range centroids {
		b.node(int64(i), c.X, c.Y)
	}
	next := int64(len(centroids))
	for _, k := range keys {
		segments := int(math.Round(shortest[k] / cg.TargetEdgeLength))
		if segments < 1 {
			segments = 1
		}
		from := centroids[k.u]
		to := centroids[k.v]
		prev := int64(k.u)
		for s := 1; s < segments; s++ {
			f := float64(s) / float64(segments)
			b.node(next, from.X+f*(to.X-from.X), from.Y+f*(to.Y-from.Y))
			b.edge(prev, next)
			prev = next
			next++
		}
		b.edge(prev, int64(k.v))
	}

	net := b.build(name, models.KindStreet).LargestComponent()
	if net.NumNodes() < 2 {
		return nil, fmt.Errorf("%s: %w", name, ErrTooSmall)
	}
	log.Infof("homogenized %s: %d raw nodes, %d clusters, %d nodes and %d edges kept",
		name, len(raw.Nodes), len(centroids), net.NumNodes(), net.NumEdges())
	return net, nil
}

// coarseGrain clusters nodes transitively closer than radius meters and
// returns the cluster of every node plus the cluster centroids. Clusters are
// numbered by their lowest member index.
func coarseGrain(nodes []Node, radius float64) ([]int, []Node) {
	ds := newDisjointSet(len(nodes))
	if radius > 0 {
		var refLat float64
		for _, n := range nodes {
			refLat += n.Y
		}
		proj := newProjector(refLat / float64(len(nodes)))

		type cell struct{ x, y int64 }
		xs := make([]float64, len(nodes))
		ys := make([]float64, len(nodes))
		buckets := make(map[cell][]int)
		for i, n := range nodes {
			xs[i], ys[i] = proj.project(n)
			c := cell{int64(math.Floor(xs[i] / radius)), int64(math.Floor(ys[i] / radius))}
			buckets[c] = append(buckets[c], i)
		}
		for i := range nodes {
			c := cell{int64(math.Floor(xs[i] / radius)), int64(math.Floor(ys[i] / radius))}
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for _, j := range buckets[cell{c.x + dx, c.y + dy}] {
						if j <= i {
							continue
						}
						if math.Hypot(xs[i]-xs[j], ys[i]-ys[j]) < radius {
							ds.union(i, j)
						}
					}
				}
			}
		}
	}

	clusterOf := make([]int, len(nodes))
	rootToCluster := make(map[int]int)
	var sums []Node
	var counts []int
	for i, n := range nodes {
		r := ds.root(i)
		c, ok := rootToCluster[r]
		if !ok {
			c = len(sums)
			rootToCluster[r] = c
			sums = append(sums, Node{})
			counts = append(counts, 0)
		}
		clusterOf[i] = c
		sums[c].X += n.X
		sums[c].Y += n.Y
		counts[c]++
	}
	for c := range sums {
		sums[c].X /= float64(counts[c])
		sums[c].Y /= float64(counts[c])
	}
	return clusterOf, sums
}
