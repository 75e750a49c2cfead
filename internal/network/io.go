package network

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	geojson "github.com/paulmach/go.geojson"
)

const (
	FileName        = "network.json"
	GeoJSONFileName = "network.geojson"
)

type networkFile struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Nodes []Node   `json:"nodes"`
	Edges [][2]int `json:"edges"`
}

// Dir is where the network of the given name lives below root.
func Dir(root, name string) string {
	return filepath.Join(root, name)
}

// Exists reports whether a saved network is present.
func Exists(root, name string) bool {
	_, err := os.Stat(filepath.Join(Dir(root, name), FileName))
	return err == nil
}

// Save writes the network as JSON plus a GeoJSON rendering of its edges.
func (n *Network) Save(root string) error {
	dir := Dir(root, n.Name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create network dir: %w", err)
	}

	data, err := json.Marshal(networkFile{
		Name:  n.Name,
		Kind:  n.Kind,
		Nodes: n.nodes,
		Edges: n.Edges(),
	})
	if err != nil {
		return err
	}
	if err := cloudwriter.WriteFileAtomic(filepath.Join(dir, FileName), data); err != nil {
		return fmt.Errorf("failed to save network %s: %w", n.Name, err)
	}
	return n.WriteGeoJSON(filepath.Join(dir, GeoJSONFileName))
}

// Load reads a network saved with Save.
func Load(root, name string) (*Network, error) {
	data, err := os.ReadFile(filepath.Join(Dir(root, name), FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read network %s: %w", name, err)
	}
	var f networkFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode network %s: %w", name, err)
	}

	adj := make([][]int, len(f.Nodes))
	for _, e := range f.Edges {
		u, v := e[0], e[1]
		if u < 0 || v < 0 || u >= len(adj) || v >= len(adj) {
			return nil, fmt.Errorf("network %s: %w: edge (%d,%d)", name, ErrUnknownNode, u, v)
		}
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
	}
	return newNetwork(f.Name, f.Kind, f.Nodes, adj), nil
}

func (n *Network) WriteGeoJSON(path string) error {
	fc := geojson.NewFeatureCollection()
	for _, e := range n.Edges() {
		from, to := n.nodes[e[0]], n.nodes[e[1]]
		f := geojson.NewLineStringFeature([][]float64{{from.X, from.Y}, {to.X, to.Y}})
		f.SetProperty("from", e[0])
		f.SetProperty("to", e[1])
		fc.AddFeature(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return cloudwriter.WriteFileAtomic(path, data)
}
