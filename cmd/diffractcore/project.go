package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"diffractcore/internal/core"
)

func (a *app) projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Create, inspect and exchange projects"}

	var name, description string
	create := &cobra.Command{
		Use:   "create [id]",
		Short: "Create an empty project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				doc, res, err := svc.CreateProject(ctx, id, core.ProjectInfo{Name: name, ShortDescription: description})
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintln(a.stdout, doc.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&description, "description", "", "short description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				list, err := svc.ListProjects(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tMODIFIED")
				for _, p := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.ModifiedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				doc, err := svc.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printJSON(doc)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				return svc.DeleteProject(ctx, args[0])
			})
		},
	}

	var out string
	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the project document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				data, err := svc.ExportDocument(ctx, args[0])
				if err != nil {
					return err
				}
				if out == "" {
					_, err = a.stdout.Write(append(data, '\n'))
					return err
				}
				return os.WriteFile(out, data, 0o644)
			})
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "", "file to write instead of stdout")

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a project from a plain or compressed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), false, func(ctx context.Context, svc *core.Service) error {
				doc, res, err := svc.ImportDocument(ctx, data)
				if err != nil {
					return err
				}
				a.report(res)
				fmt.Fprintln(a.stdout, doc.ID)
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, show, del, export, imp)
	return cmd
}
