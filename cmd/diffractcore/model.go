package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"diffractcore/internal/core"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

func (a *app) phaseCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "phase", Short: "Manage structure phases"}

	var id string
	add := &cobra.Command{
		Use:   "add <project>",
		Short: "Add the default phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				rec, res, err := svc.AddDefaultPhase(ctx, args[0], id)
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintln(a.stdout, rec.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&id, "id", "", "phase id")

	imp := &cobra.Command{
		Use:   "import <project> <file.cif>",
		Short: "Import every data block of a CIF file as a phase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				recs, res, err := svc.ImportCIF(ctx, args[0], f)
				if err != nil {
					return err
				}
				a.report(res)
				for _, r := range recs {
					fmt.Fprintln(a.stdout, r.ID)
				}
				return nil
			})
		},
	}

	export := &cobra.Command{
		Use:   "export <project> [phase...]",
		Short: "Write phases as CIF; no phase ids writes all of them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				return svc.ExportPhaseCIF(ctx, args[0], a.stdout, args[1:]...)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <project> <phase>",
		Short: "Remove a phase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				res, err := svc.RemovePhase(ctx, args[0], args[1])
				a.report(res)
				return err
			})
		},
	}

	var system string
	groups := &cobra.Command{
		Use:   "spacegroups",
		Short: "List space groups, optionally for one crystal system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			systems := symmetry.Systems()
			if system != "" {
				sys := symmetry.CrystalSystem(strings.ToLower(system))
				if len(symmetry.Numbers(sys)) == 0 {
					return domain.Newf(domain.CodeInvalidSpaceGroup, system, "unknown crystal system")
				}
				systems = []symmetry.CrystalSystem{sys}
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, sys := range systems {
				for _, n := range symmetry.Numbers(sys) {
					for _, g := range symmetry.Settings(n) {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", g.Number, g.Name(), sys, g.Hall)
					}
				}
			}
			return tw.Flush()
		},
	}
	groups.Flags().StringVar(&system, "system", "", "crystal system, e.g. tetragonal")

	cmd.AddCommand(add, imp, export, remove, groups)
	return cmd
}

func (a *app) experimentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "experiment", Short: "Manage experiments"}

	var id, name string
	add := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a simulation-only experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				rec, res, err := svc.AddExperiment(ctx, args[0], id, name)
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintln(a.stdout, rec.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&id, "id", "", "experiment id")
	add.Flags().StringVar(&name, "name", "", "display name")

	load := &cobra.Command{
		Use:   "load <project> <experiment> <file.xye>",
		Short: "Replace the measured data with an XYE table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				res, err := svc.ImportXYE(ctx, args[0], args[1], f)
				a.report(res)
				return err
			})
		},
	}

	var rng domain.SimulationRange
	setRange := &cobra.Command{
		Use:   "range <project> <experiment>",
		Short: "Set the simulation grid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				res, err := svc.SetRange(ctx, args[0], args[1], rng)
				a.report(res)
				return err
			})
		},
	}
	setRange.Flags().Float64Var(&rng.Min, "min", 10, "first x")
	setRange.Flags().Float64Var(&rng.Max, "max", 150, "last x")
	setRange.Flags().Float64Var(&rng.Step, "step", 0.1, "x step")

	link := &cobra.Command{
		Use:   "link <project> <experiment> <phase>",
		Short: "Make a phase contribute to an experiment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				res, err := svc.LinkPhase(ctx, args[0], args[1], args[2])
				a.report(res)
				return err
			})
		},
	}

	bg := &cobra.Command{
		Use:   "background <project> <experiment> <x> <intensity>",
		Short: "Add a background anchor",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("x: %w", err)
			}
			y, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("intensity: %w", err)
			}
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				pid, res, err := svc.AddBackgroundPoint(ctx, args[0], args[1], x, y)
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintln(a.stdout, pid)
				return nil
			})
		},
	}

	cmd.AddCommand(add, load, setRange, link, bg)
	return cmd
}

func (a *app) paramCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "param", Short: "Inspect and edit parameters"}

	list := &cobra.Command{
		Use:   "list <project>",
		Short: "List parameters with bounds and constraint status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				recs, err := svc.Parameters(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVALUE\tMIN\tMAX\tFREE\tCONSTRAINT")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%g\t%s\t%s\t%t\t%s\n", r.ID, r.Value, bound(r.Min), bound(r.Max), r.Free, r.Constraint)
				}
				return tw.Flush()
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <project> <id> <value>",
		Short: "Assign a value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}
			return a.editParam(cmd, func(ctx context.Context, svc *core.Service) (domain.ParameterRecord, domain.Result, error) {
				return svc.SetParameter(ctx, args[0], args[1], v)
			})
		},
	}

	free := &cobra.Command{
		Use:   "free <project> <id> <true|false>",
		Short: "Mark a parameter free or fixed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := strconv.ParseBool(args[2])
			if err != nil {
				return err
			}
			return a.editParam(cmd, func(ctx context.Context, svc *core.Service) (domain.ParameterRecord, domain.Result, error) {
				return svc.SetParameterFree(ctx, args[0], args[1], f)
			})
		},
	}

	var lower, upper string
	bounds := &cobra.Command{
		Use:   "bounds <project> <id>",
		Short: "Replace the bounds; omitted sides are open",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := optionalFloat(lower)
			if err != nil {
				return fmt.Errorf("lower: %w", err)
			}
			hi, err := optionalFloat(upper)
			if err != nil {
				return fmt.Errorf("upper: %w", err)
			}
			return a.editParam(cmd, func(ctx context.Context, svc *core.Service) (domain.ParameterRecord, domain.Result, error) {
				return svc.SetParameterBounds(ctx, args[0], args[1], lo, hi)
			})
		},
	}
	bounds.Flags().StringVar(&lower, "lower", "", "lower bound")
	bounds.Flags().StringVar(&upper, "upper", "", "upper bound")

	link := &cobra.Command{
		Use:   "link <project> <id> <expression>",
		Short: "Constrain a parameter to an expression",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editParam(cmd, func(ctx context.Context, svc *core.Service) (domain.ParameterRecord, domain.Result, error) {
				return svc.LinkParameter(ctx, args[0], args[1], args[2])
			})
		},
	}

	unlink := &cobra.Command{
		Use:   "unlink <project> <id>",
		Short: "Release a constraint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editParam(cmd, func(ctx context.Context, svc *core.Service) (domain.ParameterRecord, domain.Result, error) {
				return svc.UnlinkParameter(ctx, args[0], args[1])
			})
		},
	}

	cmd.AddCommand(list, set, free, bounds, link, unlink)
	return cmd
}

func (a *app) editParam(cmd *cobra.Command, fn func(context.Context, *core.Service) (domain.ParameterRecord, domain.Result, error)) error {
	return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
		rec, res, err := fn(ctx, svc)
		if err != nil {
			return err
		}
		a.report(res)
		fmt.Fprintf(a.stdout, "%s = %g\n", rec.ID, rec.Value)
		return nil
	})
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
