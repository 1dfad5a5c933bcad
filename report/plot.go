package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/spf13/afero"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	positiveColor = color.RGBA{R: 200, G: 30, B: 30, A: 220}
	negativeColor = color.RGBA{R: 120, G: 120, B: 120, A: 200}
	drawColor     = color.RGBA{R: 20, G: 80, B: 200, A: 220}
)

// ClassCounts are the positive and negative sample counts of one group.
type ClassCounts struct {
	Name      string
	Positives int
	Negatives int
}

// PlotLabelBalance writes a grouped bar chart of positives (red) and
// negatives (grey) per group to path.
func PlotLabelBalance(fsys afero.Fs, path string, groups []ClassCounts) error {
	if len(groups) == 0 {
		return fmt.Errorf("plot label balance: no groups")
	}
	p := plot.New()
	p.Title.Text = "Event labels: positives (red), negatives (grey)"
	p.Y.Label.Text = "samples"

	pos := make(plotter.Values, len(groups))
	neg := make(plotter.Values, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		pos[i] = float64(g.Positives)
		neg[i] = float64(g.Negatives)
		names[i] = g.Name
	}

	w := vg.Points(18)
	pb, err := plotter.NewBarChart(pos, w)
	if err != nil {
		return err
	}
	pb.Color = positiveColor
	pb.LineStyle.Width = vg.Length(0)
	pb.Offset = -w / 2

	nb, err := plotter.NewBarChart(neg, w)
	if err != nil {
		return err
	}
	nb.Color = negativeColor
	nb.LineStyle.Width = vg.Length(0)
	nb.Offset = w / 2

	p.Add(plotter.NewGrid(), pb, nb)
	p.Legend.Add("positive", pb)
	p.Legend.Add("negative", nb)
	p.Legend.Top = true
	p.NominalX(names...)

	_, ymax := padRange(append(append(plotter.Values{0}, pos...), neg...))
	p.Y.Min = 0
	p.Y.Max = ymax
	return save(fsys, p, path)
}

// PlotDrawHistogram writes a histogram of how often each index of [0, n)
// was drawn during one epoch.
func PlotDrawHistogram(fsys afero.Fs, path string, indices []int, n, bins int) error {
	if n <= 0 {
		return fmt.Errorf("plot draw histogram: empty dataset")
	}
	if bins <= 0 {
		bins = min(n, 50)
	}
	vs := make(plotter.Values, len(indices))
	for i, idx := range indices {
		vs[i] = float64(idx)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Drawn indices (%d draws over %d samples)", len(indices), n)
	p.X.Label.Text = "dataset index"
	p.Y.Label.Text = "draws"
	p.Add(plotter.NewGrid())

	if len(vs) > 0 {
		h, err := plotter.NewHist(vs, bins)
		if err != nil {
			return err
		}
		h.FillColor = drawColor
		h.LineStyle.Width = vg.Points(0.5)
		p.Add(h)
	}
	p.X.Min = 0
	p.X.Max = float64(n)
	return save(fsys, p, path)
}

// padRange computes a padded min/max for a set of values.
func padRange(vs plotter.Values) (lo, hi float64) {
	if len(vs) == 0 {
		return -1, 1
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.06
	if pad == 0 {
		pad = 1.0
	}
	return lo - pad, hi + pad
}

func save(fsys afero.Fs, p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write plot %s: %w", path, err)
	}
	return f.Close()
}
