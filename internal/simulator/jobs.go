package simulator

import (
	"fmt"
	"sort"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/network"
	"github.com/samber/lo"
)

// Job is one topology to sweep.
type Job struct {
	Name        string
	Kind        string
	NetworkType string
	// Street jobs load a network saved by the fetch stage, the others
	// generate theirs.
	Street   bool
	generate func() (*network.Network, error)
}

// Network returns the network of the job, loading street networks from
// netDir.
func (j Job) Network(netDir string) (*network.Network, error) {
	if j.Street {
		return network.Load(netDir, j.Name)
	}
	return j.generate()
}

func synthetic(name, kind string, generate func() (*network.Network, error)) Job {
	return Job{Name: name, Kind: kind, NetworkType: kind, generate: generate}
}

// Catalog lists every job of the study sorted by name: the synthetic
// lattices plus all configured street networks and their variants.
func Catalog(cfg *models.Config) []Job {
	jobs := []Job{
		synthetic("ring_10", models.KindRing, func() (*network.Network, error) { return network.Ring("ring_10", 10) }),
		synthetic("ring_100", models.KindRing, func() (*network.Network, error) { return network.Ring("ring_100", 101) }),
		synthetic("line_100", models.KindLine, func() (*network.Network, error) { return network.Line("line_100", 100) }),
		synthetic("star_100", models.KindStar, func() (*network.Network, error) { return network.Star("star_100", 100) }),
		synthetic("grid_10", models.KindGrid, func() (*network.Network, error) { return network.Grid("grid_10", 10, 10) }),
		synthetic("trigrid_13", models.KindTrigrid, func() (*network.Network, error) {
			return network.TriangularLattice("trigrid_13", 13, 13)
		}),
	}
	for _, sn := range cfg.StreetNetworks {
		for _, name := range sn.StreetTopologies() {
			jobs = append(jobs, Job{
				Name:        name,
				Kind:        models.KindStreet,
				NetworkType: models.NetworkTypeNoVolComp,
				Street:      true,
			})
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })
	return jobs
}

// Select keeps the named jobs, or all of them when names is empty.
func Select(jobs []Job, names []string) ([]Job, error) {
	if len(names) == 0 {
		return jobs, nil
	}
	known := lo.Map(jobs, func(j Job, _ int) string { return j.Name })
	if unknown := lo.Without(lo.Uniq(names), known...); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown topologies %v, known are %v", unknown, known)
	}
	return lo.Filter(jobs, func(j Job, _ int) bool { return lo.Contains(names, j.Name) }), nil
}

// Shard returns the jobs of shard index out of count: those whose position
// in the sorted job list is index modulo count.
func Shard(jobs []Job, index, count int) []Job {
	return lo.Filter(jobs, func(_ Job, i int) bool { return i%count == index })
}

// MissingNetworks lists the street jobs whose network has not been built.
func MissingNetworks(netDir string, jobs []Job) []string {
	var missing []string
	for _, j := range jobs {
		if j.Street && !network.Exists(netDir, j.Name) {
			missing = append(missing, j.Name)
		}
	}
	return missing
}
