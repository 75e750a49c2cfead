package streetnet

import (
	"context"
	"path/filepath"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/network"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Builder turns OSM extracts into homogenized networks below
// <data_dir>/networks.
type Builder struct {
	fetcher *Fetcher
	netDir  string
	force   bool
}

func NewBuilder(cfg *models.Config, force bool) *Builder {
	return &Builder{
		fetcher: NewFetcher(cfg),
		netDir:  filepath.Join(cfg.DataDir, models.DirNetworks),
		force:   force,
	}
}

// Built reports whether every topology of sn has been saved.
func (b *Builder) Built(sn models.StreetNetworkConfig) bool {
	for _, name := range sn.StreetTopologies() {
		if !network.Exists(b.netDir, name) {
			return false
		}
	}
	return true
}

// Build acquires the extract of sn and saves its base homogenization plus
// every variant. Existing networks are kept unless the builder forces a
// rebuild. The names of the saved topologies are returned.
func (b *Builder) Build(ctx context.Context, sn models.StreetNetworkConfig) ([]string, error) {
	names := sn.StreetTopologies()
	if !b.force && b.Built(sn) {
		log.Infof("Street network %s already built, skipping", sn.Name)
		return names, nil
	}

	path, err := b.fetcher.Acquire(ctx, sn)
	if err != nil {
		return nil, err
	}
	raw, err := Parse(ctx, path, sn.HighwayTags)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	settings := append([]models.CoarseGraining{sn.CoarseGraining}, sn.Variants...)
	for i, cg := range settings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		net, err := network.Homogenize(names[i], raw, cg)
		if err != nil {
			return nil, errors.Wrapf(err, "homogenize %s", names[i])
		}
		if err := net.Save(b.netDir); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"topology": names[i],
			"nodes":    net.NumNodes(),
			"edges":    net.NumEdges(),
		}).Info("Saved street network")
	}
	return names, nil
}

// BuildAll builds every configured street network in order.
func (b *Builder) BuildAll(ctx context.Context, networks []models.StreetNetworkConfig) ([]string, error) {
	var all []string
	for _, sn := range networks {
		names, err := b.Build(ctx, sn)
		if err != nil {
			return all, err
		}
		all = append(all, names...)
	}
	return all, nil
}
