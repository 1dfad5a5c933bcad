// Package report renders dataset, split and sampling summaries as terminal
// tables and PNG plots.
package report

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/splitstore"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, footer []string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(toRow(headers, columns))
	for _, row := range rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(footer, columns))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := range columns {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

func comma(n int) string { return humanize.Comma(int64(n)) }

// RenderDataset lists every sub-dataset of c with its frame window and
// sample count, followed by the total.
func RenderDataset(c *datasets.Concat) string {
	subs := c.Subs()
	rows := make([][]string, 0, len(subs))
	for i, s := range subs {
		lo, hi := s.Frames()
		note := ""
		if s.Len() == 0 {
			note = "too short"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			s.Source(),
			s.Range().String(),
			fmt.Sprintf("%d-%d", lo, hi),
			comma(s.Len()),
			note,
		})
	}
	return renderTable(
		[]string{"#", "Source", "Range", "Frames", "Samples", ""},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		[]string{"", fmt.Sprintf("%d sub-datasets", len(subs)), "", "", comma(c.Len()), ""},
	)
}

// RenderPhases summarises a train/valid/test split.
func RenderPhases(p splitstore.Phases) string {
	trainPos, validPos, testPos := p.Positives()
	rows := [][]string{
		phaseRow(splitstore.PhaseTrain, len(p.Train), trainPos),
		phaseRow(splitstore.PhaseValid, len(p.Valid), validPos),
		phaseRow(splitstore.PhaseTest, len(p.Test), testPos),
	}
	out := renderTable(
		[]string{"Phase", "Samples", "Positives", "Ratio"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
		nil,
	)
	if p.Fallback {
		out += "\nfallback: too few samples to split, train and test share everything"
	}
	return out
}

func phaseRow(name string, n, pos int) []string {
	return []string{name, comma(n), comma(pos), ratio(pos, n)}
}

func ratio(part, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(total))
}

// RenderRuns lists stored splits, newest first as returned by the store.
func RenderRuns(runs []splitstore.Summary) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		split := fmt.Sprintf("%s/%s/%s", comma(r.Train), comma(r.Valid), comma(r.Test))
		if r.Fallback {
			split += " (fallback)"
		}
		rows = append(rows, []string{
			r.ID,
			r.Name,
			humanize.Time(r.CreatedAt),
			strconv.FormatUint(r.Seed, 10),
			split,
			comma(r.Positives),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Created", "Seed", "Train/Valid/Test", "Positives"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		nil,
	)
}

// DrawStats summarises one epoch of sampler output.
type DrawStats struct {
	Draws     int
	Unique    int
	Positives int
	// MaxRepeat is the largest number of times one index was drawn.
	MaxRepeat int
}

// Summarize counts draws, distinct indices and positive labels. label may
// be nil when labels are not needed.
func Summarize(indices []int, label func(int) (int, error)) (DrawStats, error) {
	st := DrawStats{Draws: len(indices)}
	counts := make(map[int]int, len(indices))
	for _, i := range indices {
		counts[i]++
		st.MaxRepeat = max(st.MaxRepeat, counts[i])
		if label == nil {
			continue
		}
		l, err := label(i)
		if err != nil {
			return st, fmt.Errorf("label of %d: %w", i, err)
		}
		if l > 0 {
			st.Positives++
		}
	}
	st.Unique = len(counts)
	return st, nil
}

// RenderDraw renders DrawStats against a dataset of n samples.
func RenderDraw(st DrawStats, n int) string {
	rows := [][]string{
		{"dataset samples", comma(n)},
		{"draws", comma(st.Draws)},
		{"distinct indices", fmt.Sprintf("%s (%s of dataset)", comma(st.Unique), ratio(st.Unique, n))},
		{"max repeats", comma(st.MaxRepeat)},
		{"positives", fmt.Sprintf("%s (%s)", comma(st.Positives), ratio(st.Positives, st.Draws))},
	}
	return renderTable([]string{"Epoch", ""}, rows, []columnAlignment{alignLeft, alignRight}, nil)
}
