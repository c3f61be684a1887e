package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/config"
)

func newReportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "report <path>",
		Short:         "Show a saved run report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := config.LoadRunReport(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "text":
				fmt.Fprintf(out, "  Run %s  %s .. %s\n", report.RunID,
					report.StartedAt.Format("2006-01-02 15:04:05"), report.FinishedAt.Format("15:04:05"))
				for _, act := range report.Applied {
					fmt.Fprintf(out, "  %s✓%s %s\n", clrGreen, clrReset, act)
				}
				printReport(out, report)
				return nil
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "yaml":
				return yaml.NewEncoder(out).Encode(report)
			}
			return &userError{msg: fmt.Sprintf("unknown output %q", output), hint: "use -o text, json or yaml"}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json, yaml")
	return cmd
}
