package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/chrisdamba/ridetopo/internal/cloudwriter"
	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "results")

const SummaryFile = "summary.json"

var ErrNoSummary = errors.New("no summary")

// Store keeps one summary.json per topology below root. Every write replaces
// the file atomically, so an interrupted sweep leaves the last checkpoint.
type Store struct {
	root string
	mu   sync.Mutex
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Path(topology string) string {
	return filepath.Join(s.root, topology, SummaryFile)
}

// Load returns the summary of topology, or an error wrapping ErrNoSummary.
func (s *Store) Load(topology string) (*models.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(topology)
}

func (s *Store) load(topology string) (*models.Summary, error) {
	data, err := os.ReadFile(s.Path(topology))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", topology, ErrNoSummary)
	}
	if err != nil {
		return nil, err
	}
	var summary models.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary of %s: %w", topology, err)
	}
	return &summary, nil
}

// SavePoint adds or replaces point in the summary of meta.Topology. The
// metadata of meta overwrites what is stored, its points are ignored.
func (s *Store) SavePoint(meta models.Summary, point models.PointSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.load(meta.Topology)
	if errors.Is(err, ErrNoSummary) {
		summary = &models.Summary{}
	} else if err != nil {
		return err
	}

	points := summary.Points[:0:0]
	for _, p := range summary.Points {
		if p.Index != point.Index {
			points = append(points, p)
		}
	}
	points = append(points, point)
	sort.Slice(points, func(i, j int) bool { return points[i].Index < points[j].Index })

	meta.Points = points
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	path := s.Path(meta.Topology)
	if err := cloudwriter.WriteFileAtomic(path, data); err != nil {
		return err
	}
	log.Debugf("checkpointed %s", path)
	return nil
}

// Complete reports whether the summary of topology holds points 0..steps-1.
func (s *Store) Complete(topology string, steps int) bool {
	summary, err := s.Load(topology)
	if err != nil {
		return false
	}
	for i := 0; i < steps; i++ {
		if !summary.HasPoint(i) {
			return false
		}
	}
	return true
}

// Available lists the topologies that have a summary, sorted by name.
func (s *Store) Available() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), SummaryFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
