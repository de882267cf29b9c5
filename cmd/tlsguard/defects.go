package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avaropoint/tlsguard/internal/security"
)

func (a *app) newDefectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defects",
		Short: "List the compiled-in defect table, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tAFFECTED\tNOTE")
			for _, d := range security.KnownDefects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Range(), d.Comment)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nrecognized values for %s: %s\n",
				security.AckSetting, strings.Join(security.RecognizedAcks(security.KnownDefects), ", "))
			return nil
		},
	}
}
