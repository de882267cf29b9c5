package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avaropoint/tlsguard/internal/security"
	"github.com/avaropoint/tlsguard/internal/store"
)

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Refuse library versions with known critical defects",
		Long: `Compare the runtime OpenSSL version against the compiled-in defect table.

Exits non-zero when the version falls inside a defective range and
` + security.AckSetting + ` does not acknowledge it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.open()
			if err != nil {
				return err
			}
			defer lib.Close() //nolint:errcheck

			err = security.CheckVersion(a.cfg.Security.AllowVulnerableOpenSSL, lib, a.log)
			a.audit(cmd.Context(), a.newRecord(store.ActionCheck, lib, err))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: no known critical defects\n", lib.Path(), lib.Version())
			return nil
		},
	}
}
