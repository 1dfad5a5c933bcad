package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Noofbiz/framesets/config"
	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/report"
	"github.com/Noofbiz/framesets/splitstore"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var (
		phaseName string
		export    bool
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Label-scan a composed dataset and persist a train/valid/test split",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if phaseName != "train" && phaseName != "val" {
				return fmt.Errorf("--phase must be train or val, got %q", phaseName)
			}
			if err := ctx.checkRoots(cfg); err != nil {
				return err
			}
			p, err := ctx.compose(cfg, phaseName)
			if err != nil {
				return err
			}

			refs, err := scanRefs(cmd, p.data)
			if err != nil {
				return err
			}
			phases, err := splitstore.Split(refs, cfg.DataSplit.TrainRatio, cfg.DataSplit.ValidRatio, cfg.Seeds.Data)
			if err != nil {
				return err
			}
			if phases.Fallback {
				ctx.logger.Warn().Int("samples", len(refs)).Msg("too few samples to split, using all of them for train and test")
			}

			run := splitstore.Run{
				ID:         uuid.NewString(),
				Name:       runName(cfg),
				CreatedAt:  time.Now().UTC(),
				Seed:       cfg.Seeds.Data,
				TrainRatio: cfg.DataSplit.TrainRatio,
				ValidRatio: cfg.DataSplit.ValidRatio,
				Options:    cfg.DatasetOptions(),
			}
			if err := saveRun(cmd, cfg, run, phases); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.RenderPhases(phases))
			fmt.Fprintf(out, "Stored split %s in %s\n", run.ID, cfg.Output.Store)

			if !export {
				return nil
			}
			rd, err := createRunDir(cfg.Output.Dir, runDirName(runName(cfg), "split", cfg.Output.Timestamp, time.Now()), ctx.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := rd.Close(); err != nil {
					ctx.logger.Warn().Err(err).Msg("failed to release run directory")
				}
			}()
			if err := splitstore.Export(ctx.fs, rd.Path, phases); err != nil {
				return err
			}
			rec := config.NewRunRecord(run.ID, "split", cfg)
			rec.Sources = sourcePaths(p.sources)
			if err := config.SaveRunRecord(ctx.fs, rd.file("config.yaml"), rec); err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported sample lists to %s\n", rd.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&phaseName, "phase", "train", "Dataset to split: train or val")
	cmd.Flags().BoolVar(&export, "export", true, "Also export the lists as JSON into a run directory")
	return cmd
}

// scanRefs labels every sample of ds without decoding pixels.
func scanRefs(cmd *cobra.Command, ds datasets.Dataset) ([]datasets.Ref, error) {
	n := ds.Len()
	bar := newBar(progressWriter(cmd), n, "scanning labels")
	refs := make([]datasets.Ref, n)
	for i := range n {
		if err := cmd.Context().Err(); err != nil {
			return nil, err
		}
		r, err := ds.Ref(i)
		if err != nil {
			return nil, err
		}
		refs[i] = r
		if bar != nil {
			if err := bar.Add(1); err != nil {
				return nil, err
			}
		}
	}
	if bar != nil {
		if err := bar.Finish(); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func saveRun(cmd *cobra.Command, cfg *config.Config, run splitstore.Run, p splitstore.Phases) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Output.Store), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	store, err := splitstore.Open(cmd.Context(), cfg.Output.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(cmd.Context(), run, p)
}
