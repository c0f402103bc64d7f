package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"diffractcore/pkg/domain"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "diffractcore",
		Short:         "Powder diffraction modelling and refinement",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")

	root.AddCommand(
		a.configCmd(),
		a.serveCmd(),
		a.projectCmd(),
		a.phaseCmd(),
		a.experimentCmd(),
		a.paramCmd(),
		a.simulateCmd(),
		a.fitCmd(),
		a.archiveCmd(),
		a.enginesCmd(),
	)
	return root
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := a.load(); err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(a.cfg)
		},
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report prints rule warnings to stderr.
func (a *app) report(res domain.Result) {
	for _, v := range res.Violations {
		fmt.Fprintf(a.stderr, "%s: %s (%s)\n", v.Severity, v.Message, v.Rule)
	}
}
