// tmplctl - promote, retire and prune VM templates in vCenter content libraries
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var vcenterConfigFile string
var debugLogs bool
var logFormat string

var rootCmd = &cobra.Command{
	Use:           "tmplctl",
	Short:         "Manage the lifecycle of VM templates in vCenter content libraries",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch logFormat {
		case "auto", "pretty", "json":
		default:
			return &userError{
				msg:  fmt.Sprintf("unknown log format %q", logFormat),
				hint: "use --log-format auto, pretty or json",
			}
		}
		_ = initDebugLogger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vcenterConfigFile, "vcenter-config", "configs/vcenter.sops.yaml",
		"Path to vCenter config file (SOPS encrypted when named *.sops.*)")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Enable debug logging to "+debugLogPath)
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"Log output: auto (pretty on a terminal, JSON otherwise), pretty or json")

	rootCmd.AddCommand(newPromoteCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newLibrariesCmd())
	rootCmd.AddCommand(newReportCmd())
}

func main() {
	// Ctrl+C cancels the run context; in-flight catalog calls fail and are
	// recorded, later phases are not started.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		const (
			red    = "\033[31m"
			yellow = "\033[33m"
			cyan   = "\033[36m"
			reset  = "\033[0m"
		)
		if ue, ok := err.(*userError); ok {
			fmt.Fprintf(os.Stderr, "%sError:%s %s\n", red, reset, ue.Error())
			if hint := ue.Hint(); hint != "" {
				fmt.Fprintf(os.Stderr, "%sHint:%s %s%s%s\n", yellow, reset, cyan, hint, reset)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%sError:%s %v\n", red, reset, err)
		}
		if debugCleanup != nil {
			debugCleanup()
		}
		os.Exit(exitCode(err))
	}
	if debugCleanup != nil {
		debugCleanup()
	}
}
