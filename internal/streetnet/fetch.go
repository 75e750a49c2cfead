package streetnet

import (
	"context"
	"encoding/xml"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmapi"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "streetnet")

// Fetcher downloads OSM extracts for configured bounding boxes.
type Fetcher struct {
	dir string
	ds  *osmapi.Datasource
}

func NewFetcher(cfg *models.Config) *Fetcher {
	ds := osmapi.NewDatasource(&http.Client{Timeout: cfg.OSM.Timeout})
	if cfg.OSM.APIURL != "" {
		ds.BaseURL = cfg.OSM.APIURL
	}
	return &Fetcher{
		dir: filepath.Join(cfg.DataDir, models.DirOSM),
		ds:  ds,
	}
}

// ExtractPath is where the downloaded extract of a street network is kept.
func (f *Fetcher) ExtractPath(sn models.StreetNetworkConfig) string {
	if sn.File != "" {
		return sn.File
	}
	return filepath.Join(f.dir, sn.Name+".osm")
}

// Acquire makes sure the OSM extract of sn is on disk and returns its path.
// A configured file is used as is; otherwise the bounding box is downloaded
// once and reused afterwards.
func (f *Fetcher) Acquire(ctx context.Context, sn models.StreetNetworkConfig) (string, error) {
	path := f.ExtractPath(sn)
	if _, err := os.Stat(path); err == nil {
		log.Infof("Using existing OSM extract %s", path)
		return path, nil
	} else if sn.File != "" {
		return "", errors.Wrapf(err, "OSM file of %s", sn.Name)
	}

	log.WithFields(logrus.Fields{
		"network": sn.Name,
		"bounds":  sn.Bounds,
	}).Info("Downloading OSM extract")
	o, err := f.ds.Map(ctx, &osm.Bounds{
		MinLat: sn.Bounds.MinLat,
		MaxLat: sn.Bounds.MaxLat,
		MinLon: sn.Bounds.MinLon,
		MaxLon: sn.Bounds.MaxLon,
	})
	if err != nil {
		return "", errors.Wrapf(err, "OSM download of %s", sn.Name)
	}
	data, err := xml.Marshal(o)
	if err != nil {
		return "", errors.Wrap(err, "OSM encode")
	}

	if err := cloudwriter.WriteFileAtomic(path, append([]byte(xml.Header), data...)); err != nil {
		return "", errors.Wrap(err, "OSM write")
	}
	log.Infof("Saved %d nodes and %d ways to %s", len(o.Nodes), len(o.Ways), path)
	return path, nil
}
