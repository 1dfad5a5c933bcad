package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Noofbiz/framesets/config"
	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/frames"
	"github.com/Noofbiz/framesets/report"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		writeRun bool
		plot     bool
		visual   bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Discover sources and compose the train and val datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := ctx.checkRoots(cfg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			phases := make([]*phase, 0, 2)
			for _, name := range []string{"train", "val"} {
				p, err := ctx.compose(cfg, name)
				if err != nil {
					return err
				}
				phases = append(phases, p)
				fmt.Fprintf(out, "%s\n%s\n", strings.ToUpper(name), report.RenderDataset(p.data))
			}

			if !writeRun {
				if plot || visual {
					return fmt.Errorf("--plot and --visual need --out")
				}
				return nil
			}

			rd, err := createRunDir(cfg.Output.Dir, runDirName(runName(cfg), "build", cfg.Output.Timestamp, time.Now()), ctx.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := rd.Close(); err != nil {
					ctx.logger.Warn().Err(err).Msg("failed to release run directory")
				}
			}()

			rec := config.NewRunRecord(uuid.NewString(), "build", cfg)
			rec.Sources = sourcePaths(phases[0].sources)
			if err := config.SaveRunRecord(ctx.fs, rd.file("config.yaml"), rec); err != nil {
				return err
			}

			if plot {
				groups := make([]report.ClassCounts, 0, len(phases))
				for _, p := range phases {
					pos, err := datasets.CountEvents(p.data)
					if err != nil {
						return fmt.Errorf("label scan %s: %w", p.name, err)
					}
					groups = append(groups, report.ClassCounts{Name: p.name, Positives: pos, Negatives: p.data.Len() - pos})
				}
				if err := report.PlotLabelBalance(ctx.fs, rd.file("labels.png"), groups); err != nil {
					return err
				}
			}

			if visual {
				n, err := writeVisuals(ctx, cfg, phases[0].sources, rd.file("visual"))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d visual stacks\n", n)
			}

			fmt.Fprintf(out, "Run %s written to %s\n", rec.RunID, rd.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeRun, "out", false, "Create a run directory with the effective configuration")
	cmd.Flags().BoolVar(&plot, "plot", false, "Plot event label balance into the run directory")
	cmd.Flags().BoolVar(&visual, "visual", false, "Export strided visual samples of every source as TIFF stacks")
	return cmd
}

func runName(cfg *config.Config) string {
	if cfg.Output.Name != "" {
		return cfg.Output.Name
	}
	return "framesets"
}

// writeVisuals exports one TIFF stack per source holding the frames of
// every sample kept by the visual stride.
func writeVisuals(ctx *commandContext, cfg *config.Config, srcs []datasets.Source, dir string) (int, error) {
	if cfg.Sampling.VisualSamples <= 0 {
		return 0, fmt.Errorf("sampling.visual_samples must be positive to export visuals")
	}
	visuals, err := datasets.BuildVisual(srcs, cfg.DatasetOptions(), ctx.logger)
	if err != nil {
		return 0, err
	}

	if err := ctx.fs.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create visual directory: %w", err)
	}
	written := 0
	for _, v := range visuals {
		if v.Len() == 0 {
			continue
		}
		sub := datasets.Stride(v, cfg.Sampling.VisualSamples)
		var pages []*frames.Frame
		for i := range sub.Len() {
			s, err := sub.Get(i)
			if err != nil {
				return written, err
			}
			pages = append(pages, s.Frames...)
		}
		src := v.Subs()[0].Source()
		name := fmt.Sprintf("%03d_%s.tif", written, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))
		if err := frames.SaveStack(ctx.fs, filepath.Join(dir, name), pages); err != nil {
			return written, err
		}
		ctx.logger.Debug().Str("source", src).Str("file", name).Int("frames", len(pages)).Msg("visual stack written")
		written++
	}
	return written, nil
}
