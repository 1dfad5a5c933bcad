package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Noofbiz/framesets/config"
	"github.com/Noofbiz/framesets/loader"
	"github.com/Noofbiz/framesets/report"
	"github.com/Noofbiz/framesets/sampling"
)

type sampleFlags struct {
	phase    string
	epochs   int
	balanced bool
	mode     string
	plotPath string
	load     bool
}

func newSampleCommand(ctx *commandContext) *cobra.Command {
	f := sampleFlags{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw sampler epochs over a composed dataset and report them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if f.phase != "train" && f.phase != "val" {
				return fmt.Errorf("--phase must be train or val, got %q", f.phase)
			}
			if f.epochs < 1 {
				return fmt.Errorf("--epochs must be positive, got %d", f.epochs)
			}
			if cmd.Flags().Changed("balanced") {
				cfg.Sampling.Balanced = f.balanced
			}
			if f.mode != "" {
				cfg.Sampling.Mode = f.mode
			}

			if err := ctx.checkRoots(cfg); err != nil {
				return err
			}
			p, err := ctx.compose(cfg, f.phase)
			if err != nil {
				return err
			}
			sampler, err := newSampler(cmd, ctx, cfg, p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var last []int
			for epoch := range f.epochs {
				last = sampler.Indices()
				st, err := report.Summarize(last, p.data.Label)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s epoch %d\n%s\n", p.name, epoch, report.RenderDraw(st, p.data.Len()))
			}

			if f.plotPath != "" {
				if err := report.PlotDrawHistogram(ctx.fs, f.plotPath, last, p.data.Len(), 0); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote draw histogram to %s\n", f.plotPath)
			}

			if f.load {
				return loadEpochs(cmd, ctx, cfg, p, sampler, f.epochs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.phase, "phase", "train", "Dataset to sample: train or val")
	cmd.Flags().IntVar(&f.epochs, "epochs", 1, "Number of epochs to draw")
	cmd.Flags().BoolVar(&f.balanced, "balanced", false, "Override sampling.balanced")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Override sampling.mode (random, permutation, sequential)")
	cmd.Flags().StringVar(&f.plotPath, "plot", "", "Write a histogram of the last epoch's draws to this PNG")
	cmd.Flags().BoolVar(&f.load, "load", false, "Decode every batch with the parallel loader")
	return cmd
}

func newSampler(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, p *phase) (sampling.Sampler, error) {
	mode, err := sampling.ParseMode(cfg.Sampling.Mode)
	if err != nil {
		return nil, fmt.Errorf("sampling.mode: %w", err)
	}
	log := ctx.logger.With().Str("phase", p.name).Logger()

	if cfg.Sampling.Balanced {
		policy, err := cfg.LabelPolicy()
		if err != nil {
			return nil, err
		}
		b, err := sampling.NewBalanced(p.data, cfg.Sampling.BalancedSize, sampling.BalancedOptions{
			Seed:        cfg.Seeds.Data,
			Sequential:  mode == sampling.Sequential,
			EpochSeeded: cfg.Sampling.EpochSeeded,
			Policy:      policy,
			Progress:    progressWriter(cmd),
			Log:         log,
		})
		if err != nil {
			return nil, err
		}
		log.Info().
			Int("positives", len(b.Positives())).
			Int("negatives", len(b.Negatives())).
			Int("per_class", b.PerClass()).
			Msg("balanced sampler ready")
		return b, nil
	}

	k := cfg.Sampling.TrainSamples
	if p.name == "val" {
		k = cfg.Sampling.ValSamples
	}
	u, err := sampling.NewUniform(p.data.Len(), k, sampling.UniformOptions{Mode: mode, Seed: cfg.Seeds.Data})
	if err != nil {
		return nil, err
	}
	log.Info().Stringer("mode", mode).Int("draws", k).Int("samples", p.data.Len()).Msg("uniform sampler ready")
	return u, nil
}

// loadEpochs pushes every epoch through the loader and reports throughput.
func loadEpochs(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, p *phase, s sampling.Sampler, epochs int) error {
	l, err := loader.New(p.data, s, loader.Options{
		Name:      p.name,
		BatchSize: cfg.Loader.BatchSize,
		Workers:   cfg.Loader.Workers,
		Prefetch:  cfg.Loader.Prefetch,
		Log:       ctx.logger,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	start := time.Now()
	bar := newBar(progressWriter(cmd), epochs*l.Batches(), "loading batches")
	for range epochs {
		err := l.Epoch(cmd.Context(), func(b *loader.Batch) error {
			if bar != nil {
				return bar.Add(1)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if bar != nil {
		if err := bar.Finish(); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	n := l.Decoded()
	rate := float64(n) / max(elapsed.Seconds(), 1e-9)
	fmt.Fprintf(cmd.OutOrStdout(), "Decoded %s samples in %s (%s samples/s)\n",
		humanize.Comma(n), elapsed.Round(time.Millisecond), humanize.CommafWithDigits(rate, 1))
	return nil
}
