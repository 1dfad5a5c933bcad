package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/framesets/datasets"
	"github.com/Noofbiz/framesets/report"
	"github.com/Noofbiz/framesets/splitstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect persisted splits",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsCheckCommand(ctx))
	runsCmd.AddCommand(newRunsExportCommand(ctx))
	runsCmd.AddCommand(newRunsDeleteCommand(ctx))
	return runsCmd
}

func (c *commandContext) withStore(cmd *cobra.Command, fn func(*splitstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := splitstore.Open(cmd.Context(), cfg.Output.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored splits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(s *splitstore.Store) error {
				runs, err := s.Runs(cmd.Context())
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stored splits")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.RenderRuns(runs))
				return nil
			})
		},
	}
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the phases of a stored split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(s *splitstore.Store) error {
				run, phases, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s) seed %d, created %s\n", run.ID, run.Name, run.Seed, run.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintln(out, report.RenderPhases(phases))
				return nil
			})
		},
	}
}

// newRunsCheckCommand rebuilds every phase of a stored split from its
// sources and compares the recomputed labels with the stored ones.
func newRunsCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <id>",
		Short: "Rebuild a stored split from its sources and verify its labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(s *splitstore.Store) error {
				run, phases, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				mismatched := 0
				for _, name := range []string{splitstore.PhaseTrain, splitstore.PhaseValid, splitstore.PhaseTest} {
					refs, _ := phases.ByName(name)
					if len(refs) == 0 {
						continue
					}
					ds, err := datasets.FromRefs(ctx.fs, refs, run.Options, ctx.logger)
					if err != nil {
						return fmt.Errorf("rebuild %s: %w", name, err)
					}
					bad := 0
					for i, ref := range refs {
						label, err := ds.Label(i)
						if err != nil {
							return err
						}
						if label != ref.Label {
							bad++
						}
					}
					fmt.Fprintf(out, "%s: %d samples, %d label mismatches\n", name, len(refs), bad)
					mismatched += bad
				}
				if mismatched > 0 {
					return fmt.Errorf("split %s: %d labels differ from the stored lists", run.ID, mismatched)
				}
				return nil
			})
		},
	}
}

func newRunsExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <dir>",
		Short: "Write a stored split as train/valid/test JSON lists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(s *splitstore.Store) error {
				_, phases, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := ctx.fs.MkdirAll(args[1], 0o755); err != nil {
					return fmt.Errorf("create export directory: %w", err)
				}
				if err := splitstore.Export(ctx.fs, args[1], phases); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(s *splitstore.Store) error {
				err := s.Delete(cmd.Context(), args[0])
				if errors.Is(err, splitstore.ErrRunNotFound) {
					return fmt.Errorf("no stored split with id %s", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
