package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"diffractcore/internal/blob"
	"diffractcore/internal/core"
)

func (a *app) simulateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "simulate <project> [experiment]",
		Short: "Compute patterns; prints x, total, background and observed columns",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				var calcs []core.Calculation
				if len(args) == 2 {
					c, err := svc.Calculate(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					calcs = []core.Calculation{c}
				} else {
					var err error
					if calcs, err = svc.CalculateAll(ctx, args[0]); err != nil {
						return err
					}
				}
				if asJSON {
					return a.printJSON(calcs)
				}
				return a.writeColumns(calcs)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full calculation as JSON")
	return cmd
}

func (a *app) writeColumns(calcs []core.Calculation) error {
	w := bufio.NewWriter(a.stdout)
	for _, c := range calcs {
		fmt.Fprintf(w, "# experiment %s", c.ExperimentID)
		if len(c.Observed) > 0 {
			fmt.Fprintf(w, " chi2 %.6g", c.ChiSquare)
		}
		fmt.Fprintln(w)
		for i, x := range c.Pattern.X {
			fmt.Fprintf(w, "%.6f %.8g %.8g", x, c.Pattern.Total[i], c.Pattern.Background[i])
			if i < len(c.Observed) {
				fmt.Fprintf(w, " %.8g", c.Observed[i])
			}
			fmt.Fprintln(w)
		}
	}
	return w.Flush()
}

func (a *app) fitCmd() *cobra.Command {
	var (
		experiments []string
		method      string
		maxIter     int
	)
	cmd := &cobra.Command{
		Use:   "fit <project>",
		Short: "Refine free parameters; Ctrl-C cancels the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.run(ctx, false, func(ctx context.Context, svc *core.Service) error {
				projectID := args[0]
				if method != "" || maxIter > 0 {
					doc, err := svc.GetProject(ctx, projectID)
					if err != nil {
						return err
					}
					cfg := doc.Fit
					if method != "" {
						cfg.Method = method
					}
					if maxIter > 0 {
						cfg.MaxIterations = maxIter
					}
					if _, _, err := svc.SetFitConfig(ctx, projectID, cfg); err != nil {
						return err
					}
				}
				ch, err := svc.StartFit(context.WithoutCancel(ctx), projectID, experiments)
				if err != nil {
					return err
				}
				done := make(chan struct{})
				defer close(done)
				go func() {
					select {
					case <-ctx.Done():
						_ = svc.CancelFit(context.WithoutCancel(ctx), projectID)
					case <-done:
					}
				}()
				for p := range ch {
					if !p.Final {
						fmt.Fprintf(a.stderr, "iteration %d chi2 %.6g\n", p.Iteration, p.ChiSquare)
						continue
					}
					if p.Summary != nil {
						return a.printFitSummary(context.WithoutCancel(ctx), svc, projectID, *p.Summary)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&experiments, "experiment", "e", nil, "experiments to fit (default: all with data)")
	cmd.Flags().StringVar(&method, "method", "", "minimizer: lm, nelder-mead, lbfgs, gradient")
	cmd.Flags().IntVar(&maxIter, "max-iterations", 0, "iteration limit")
	return cmd
}

func (a *app) printFitSummary(ctx context.Context, svc *core.Service, projectID string, s core.FitSummary) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "state\t%s\n", s.State)
	fmt.Fprintf(tw, "success\t%t\n", s.Success)
	fmt.Fprintf(tw, "method\t%s\n", s.Method)
	fmt.Fprintf(tw, "iterations\t%d\n", s.Iterations)
	fmt.Fprintf(tw, "nvarys\t%d\n", s.NVarys)
	fmt.Fprintf(tw, "redchi2\t%.6g\n", s.ReducedChiSquare)
	fmt.Fprintf(tw, "gof\t%.6g\n", s.GoodnessOfFit)
	if err := tw.Flush(); err != nil {
		return err
	}
	recs, err := svc.Parameters(ctx, projectID)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if !r.Free {
			continue
		}
		if u, ok := s.Uncertainties[r.ID]; ok {
			fmt.Fprintf(a.stdout, "%s = %g ± %.2g\n", r.ID, r.Value, u)
		} else {
			fmt.Fprintf(a.stdout, "%s = %g\n", r.ID, r.Value)
		}
	}
	return nil
}

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "archive", Short: "Store and restore compressed project snapshots"}

	create := &cobra.Command{
		Use:   "create <project>",
		Short: "Archive the current project state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), true, func(ctx context.Context, svc *core.Service) error {
				info, err := svc.ArchiveProject(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, info.Key)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <project>",
		Short: "List archives of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), true, func(ctx context.Context, svc *core.Service) error {
				infos, err := svc.ListArchives(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tCHECKSUM")
				for _, in := range infos {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", in.Key, in.Size, in.Metadata[blob.MetaChecksum])
				}
				return tw.Flush()
			})
		},
	}

	var asID string
	restore := &cobra.Command{
		Use:   "restore <key>",
		Short: "Create a project from an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), true, func(ctx context.Context, svc *core.Service) error {
				doc, res, err := svc.RestoreArchive(ctx, args[0], asID)
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintln(a.stdout, doc.ID)
				return nil
			})
		},
	}
	restore.Flags().StringVar(&asID, "as", "", "project id to restore under (default: the archived id)")

	cmd.AddCommand(create, list, restore)
	return cmd
}

func (a *app) enginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List calculator engines and installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), false, func(_ context.Context, svc *core.Service) error {
				names, selected := svc.Engines()
				for _, n := range names {
					mark := " "
					if n == selected {
						mark = "*"
					}
					fmt.Fprintf(a.stdout, "%s %s\n", mark, n)
				}
				for _, p := range svc.RegisteredPlugins() {
					fmt.Fprintf(a.stdout, "plugin %s %s\n", p.Name, p.Version)
				}
				return nil
			})
		},
	}
}
