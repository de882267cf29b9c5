package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/avaropoint/tlsguard/internal/security"
	"github.com/avaropoint/tlsguard/internal/store"
)

// errNoAudit is returned by the audit command when no database is configured.
var errNoAudit = errors.New("audit.path is not set")

func (a *app) newAuditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded startup decisions and verify the hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Audit.Path == "" {
				return errNoAudit
			}
			s, err := store.NewSQLiteStore(a.cfg.Audit.Path)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			recs, err := s.ListStartups(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tTIME\tACTION\tVERSION\tTHREADING\tACK\tRESULT\tDEFECTS")
			for _, r := range recs {
				result := "pass"
				if !r.Passed {
					result = "fail"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Seq, r.At.Local().Format(time.DateTime), r.Action, r.VersionString,
					r.Threading, r.Acknowledged, result, strings.Join(r.Defects, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if err := s.VerifyChain(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "hash chain intact")
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show (0 for all)")
	return cmd
}

// newRecord describes one gate or init outcome for the audit log.
func (a *app) newRecord(action store.Action, lib library, err error) *store.StartupRecord {
	v := lib.Version()
	rec := &store.StartupRecord{
		Action:        action,
		LibraryPath:   lib.Path(),
		Version:       uint64(v),
		VersionString: v.String(),
		Threading:     v.ThreadModel().String(),
		Acknowledged:  a.cfg.Security.AllowVulnerableOpenSSL,
		Passed:        err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
		var verr *security.VulnerableError
		if errors.As(err, &verr) {
			for _, d := range verr.Defects {
				rec.Defects = append(rec.Defects, d.ID)
			}
		}
	}
	return rec
}

// audit appends rec when audit.path is set. A failing audit store is
// logged but never changes the startup decision.
func (a *app) audit(ctx context.Context, rec *store.StartupRecord) {
	if a.cfg.Audit.Path == "" {
		return
	}
	s, err := store.NewSQLiteStore(a.cfg.Audit.Path)
	if err != nil {
		a.log.Warn("audit store unavailable", "path", a.cfg.Audit.Path, "error", err)
		return
	}
	defer s.Close() //nolint:errcheck

	if err := s.RecordStartup(ctx, rec); err != nil {
		a.log.Warn("failed to record startup", "error", err)
		return
	}
	a.log.Debug("startup recorded", "id", rec.ID, "seq", rec.Seq)
}
