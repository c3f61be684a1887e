package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLibrariesCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "libraries",
		Short:         "List content libraries visible to the configured account",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newCLILoggerTo(cmd.ErrOrStderr())
			s, err := openSession(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer s.Close()

			libs, err := s.library.ListCatalogs(cmd.Context())
			if err != nil {
				return explainCatalogError(err)
			}
			if len(libs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "  No content libraries found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tID\tDESCRIPTION")
			for _, l := range libs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Name, l.Type, l.ID, l.Description)
			}
			return tw.Flush()
		},
	}
}
