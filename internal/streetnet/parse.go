package streetnet

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrisdamba/ridetopo/internal/network"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

type way struct {
	id    osm.WayID
	nodes []osm.NodeID
}

func newScanner(ctx context.Context, filename string, r io.Reader) (OSMScanner, error) {
	switch {
	case strings.HasSuffix(filename, ".pbf"):
		return osmpbf.New(ctx, r, 4), nil
	case strings.HasSuffix(filename, ".osm"), strings.HasSuffix(filename, ".xml"):
		return osmxml.New(ctx, r), nil
	default:
		return nil, errors.Errorf("unsupported OSM file extension: '%s'", filepath.Ext(filename))
	}
}

// Parse reads an OSM extract and returns the street graph between
// intersections. Only ways tagged highway=<one of tags> are used, areas are
// skipped. Chains of nodes are contracted into single edges whose length is
// the sum of their great circle segments.
func Parse(ctx context.Context, filename string, tags []string) (*network.RawGraph, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "File open")
	}
	defer file.Close()

	allowed := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		allowed[t] = struct{}{}
	}

	log.Infof("Processing ways of '%s'...", filename)
	st := time.Now()
	ways := []way{}
	nodesSeen := make(map[osm.NodeID]struct{})
	{
		scannerWays, err := newScanner(ctx, filename, file)
		if err != nil {
			return nil, err
		}
		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != osm.TypeWay {
				continue
			}
			w := obj.(*osm.Way)
			if !allowedWay(w, allowed) {
				continue
			}
			ids := make([]osm.NodeID, len(w.Nodes))
			for i, wn := range w.Nodes {
				ids[i] = wn.ID
				nodesSeen[wn.ID] = struct{}{}
			}
			ways = append(ways, way{id: w.ID, nodes: ids})
		}
		err = scannerWays.Err()
		scannerWays.Close()
		if err != nil {
			return nil, errors.Wrap(err, "Scanner error on Ways")
		}
	}
	log.Infof("Done in %v, ways: %d", time.Since(st), len(ways))

	// Seek file to start
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking")
	}

	st = time.Now()
	positions := make(map[osm.NodeID]network.Node, len(nodesSeen))
	{
		scannerNodes, err := newScanner(ctx, filename, file)
		if err != nil {
			return nil, err
		}
		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != osm.TypeNode {
				continue
			}
			n := obj.(*osm.Node)
			if _, ok := nodesSeen[n.ID]; ok {
				positions[n.ID] = network.Node{X: n.Lon, Y: n.Lat}
			}
		}
		err = scannerNodes.Err()
		scannerNodes.Close()
		if err != nil {
			return nil, errors.Wrap(err, "Scanner error on Nodes")
		}
	}
	log.Infof("Done in %v, nodes: %d of %d referenced", time.Since(st), len(positions), len(nodesSeen))

	return contract(ways, positions), nil
}

func allowedWay(w *osm.Way, allowed map[string]struct{}) bool {
	if w.Tags.Find("area") == "yes" {
		return false
	}
	_, ok := allowed[w.Tags.Find("highway")]
	return ok
}

// contract keeps intersections (nodes used at least twice, counting way
// endpoints double) and joins the nodes between them into edges. A way is
// split where it references a node missing from the extract.
func contract(ways []way, positions map[osm.NodeID]network.Node) *network.RawGraph {
	useCount := make(map[osm.NodeID]int)
	for _, w := range ways {
		for i, id := range w.nodes {
			if i == 0 || i == len(w.nodes)-1 {
				useCount[id] += 2
			} else {
				useCount[id]++
			}
		}
	}

	raw := &network.RawGraph{}
	index := make(map[osm.NodeID]int)
	vertex := func(id osm.NodeID) int {
		if i, ok := index[id]; ok {
			return i
		}
		index[id] = len(raw.Nodes)
		raw.Nodes = append(raw.Nodes, positions[id])
		return index[id]
	}

	for _, w := range ways {
		var (
			start   osm.NodeID
			started bool
			length  float64
			prev    network.Node
		)
		for i, id := range w.nodes {
			pos, ok := positions[id]
			if !ok {
				started = false
				continue
			}
			if !started {
				start, started, length, prev = id, true, 0, pos
				continue
			}
			length += network.GreatCircleDistance(prev, pos)
			prev = pos
			last := i == len(w.nodes)-1
			if useCount[id] >= 2 || last || !hasPosition(w.nodes[i+1], positions) {
				if id != start {
					raw.Edges = append(raw.Edges, network.RawEdge{
						From:   vertex(start),
						To:     vertex(id),
						Length: length,
					})
				}
				start, length = id, 0
			}
		}
	}
	return raw
}

func hasPosition(id osm.NodeID, positions map[osm.NodeID]network.Node) bool {
	_, ok := positions[id]
	return ok
}
