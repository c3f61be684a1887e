package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/lifecycle"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
)

func newFindCmd() *cobra.Command {
	var libraryName, osVersion, family string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the newest published template for an OS version or family",
		Example: `  tmplctl find --library templates-prod --os-version ubuntu-24.04
  tmplctl find --library templates-prod --family web`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := lifecycle.DefaultPolicy()
			key := osVersion
			switch {
			case osVersion != "" && family != "":
				return &userError{msg: "--os-version and --family are mutually exclusive"}
			case osVersion != "":
				policy.GroupBy = lifecycle.GroupByOSVersion
			case family != "":
				policy.GroupBy = lifecycle.GroupByFamily
				key = family
			default:
				return &userError{msg: "one of --os-version or --family is required"}
			}

			// Status output goes to stderr so stdout carries only the name.
			logger := newCLILoggerTo(cmd.ErrOrStderr())
			s, err := openSession(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer s.Close()

			a, err := promote.New(s.library, promote.WithLogger(logger)).Find(cmd.Context(), libraryName, policy, key)
			if err != nil {
				if errors.Is(err, promote.ErrNoPublished) {
					return &userError{msg: err.Error(), hint: "promote a draft first: tmplctl promote --library " + libraryName}
				}
				return explainCatalogError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&libraryName, "library", "l", "", "Content library name")
	cmd.Flags().StringVar(&osVersion, "os-version", "", "operatingSystemVersion to look up")
	cmd.Flags().StringVar(&family, "family", "", "Template family to look up")
	_ = cmd.MarkFlagRequired("library")
	return cmd
}
