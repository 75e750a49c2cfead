package figures

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/chrisdamba/ridetopo/internal/models"
	"github.com/chrisdamba/ridetopo/internal/results"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var log = logrus.WithField("module", "figures")

var ErrMissingInput = errors.New("missing input")

var syntheticTopologies = []string{"ring_10", "ring_100", "line_100", "star_100", "grid_10", "trigrid_13"}

// Figure is one plot of a quantity against the normalized request rate x,
// with a series per topology.
type Figure struct {
	Name   string
	Title  string
	YLabel string
	Series []string
	Y      func(s *models.Summary, p models.PointSummary) float64
}

func waitOverLAvg(s *models.Summary, p models.PointSummary) float64 {
	return p.MeanWait / s.LAvg
}

// Catalog lists the figures of the study for the configured street networks.
func Catalog(cfg *models.Config) []Figure {
	var streets, variants []string
	for _, sn := range cfg.StreetNetworks {
		names := sn.StreetTopologies()
		streets = append(streets, names[0])
		if len(names) > 1 {
			variants = append(variants, names...)
		}
	}
	return []Figure{
		{
			Name:   "wait_time",
			Title:  "Waiting time",
			YLabel: "mean wait / l_avg",
			Series: syntheticTopologies,
			Y:      waitOverLAvg,
		},
		{
			Name:   "stoplist",
			Title:  "Stoplist length",
			YLabel: "mean stoplist length",
			Series: syntheticTopologies,
			Y:      func(_ *models.Summary, p models.PointSummary) float64 { return p.MeanStoplistLength },
		},
		{
			Name:   "efficiency",
			Title:  "Efficiency",
			YLabel: "direct distance / distance driven",
			Series: append(append([]string{}, syntheticTopologies...), streets...),
			Y:      func(_ *models.Summary, p models.PointSummary) float64 { return p.Efficiency },
		},
		{
			Name:   "street_wait_time",
			Title:  "Waiting time on street networks",
			YLabel: "mean wait / l_avg",
			Series: streets,
			Y:      waitOverLAvg,
		},
		{
			Name:   "coarse_graining",
			Title:  "Coarse graining",
			YLabel: "mean wait / l_avg",
			Series: variants,
			Y:      waitOverLAvg,
		},
	}
}

type Generator struct {
	store        *results.Store
	dir          string
	formats      []string
	allowPartial bool
}

func NewGenerator(cfg *models.Config, allowPartial bool) *Generator {
	return &Generator{
		store:        results.NewStore(filepath.Join(cfg.DataDir, models.DirResults)),
		dir:          cfg.FigureDir,
		formats:      cfg.FigureFormats,
		allowPartial: allowPartial,
	}
}

// Missing lists the series of f without a summary.
func (g *Generator) Missing(f Figure) []string {
	return lo.Filter(f.Series, func(name string, _ int) bool {
		_, err := g.store.Load(name)
		return err != nil
	})
}

// Render draws f in every configured format and returns the written paths.
func (g *Generator) Render(f Figure) ([]string, error) {
	var summaries []*models.Summary
	for _, name := range f.Series {
		s, err := g.store.Load(name)
		if errors.Is(err, results.ErrNoSummary) {
			if !g.allowPartial {
				return nil, fmt.Errorf("figure %s: %w: no results for %s, run simulate first", f.Name, ErrMissingInput, name)
			}
			log.Warnf("figure %s: skipping %s, no results", f.Name, name)
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("figure %s: %w: none of %v simulated", f.Name, ErrMissingInput, f.Series)
	}

	p, err := g.plot(f, summaries)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.dir, os.ModePerm); err != nil {
		return nil, err
	}
	var paths []string
	for _, format := range g.formats {
		path := filepath.Join(g.dir, f.Name+"."+format)
		if err := p.Save(9*vg.Inch, 6*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	log.WithField("series", len(summaries)).Infof("rendered %s", f.Name)
	return paths, nil
}

func (g *Generator) plot(f Figure, summaries []*models.Summary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = f.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = f.YLabel
	p.Title.TextStyle.Color = color.Gray{128}
	p.X.Label.TextStyle.Color = color.Gray{128}
	p.Y.Label.TextStyle.Color = color.Gray{128}
	p.Legend.TextStyle.Color = color.Gray{128}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.Add(plotter.NewGrid())

	// Paired has between 3 and 12 colours
	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", min(max(len(summaries), 3), 12))
	if err != nil {
		return nil, err
	}
	colors := palette.Colors()

	for i, s := range summaries {
		xys := make(plotter.XYs, len(s.Points))
		for k, pt := range s.Points {
			xys[k].X = pt.X
			xys[k].Y = f.Y(s, pt)
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Topology, err)
		}
		c := colors[i%len(colors)]
		line.Color = c
		line.Width = vg.Points(1.5)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(s.Topology, line, points)
	}
	return p, nil
}

// RenderAll renders the named figures, or all of them when names is empty.
func (g *Generator) RenderAll(figures []Figure, names []string) ([]string, error) {
	if len(names) > 0 {
		known := lo.Map(figures, func(f Figure, _ int) string { return f.Name })
		if unknown := lo.Without(names, known...); len(unknown) > 0 {
			return nil, fmt.Errorf("unknown figures %v, known are %v", unknown, known)
		}
		figures = lo.Filter(figures, func(f Figure, _ int) bool { return lo.Contains(names, f.Name) })
	}
	var paths []string
	for _, f := range figures {
		if len(f.Series) == 0 {
			log.Infof("figure %s has no series configured, skipping", f.Name)
			continue
		}
		written, err := g.Render(f)
		paths = append(paths, written...)
		if err != nil {
			return paths, err
		}
	}
	return paths, nil
}
