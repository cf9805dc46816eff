package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pitboss/internal/bootstrap"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
	"pitboss/internal/usecase/floor"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the append-only audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events for a slip or a table, newest first",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		limit, _ := cmd.Flags().GetInt("limit")

		var events []ports.AuditEvent
		var err error
		switch {
		case cmd.Flags().Changed("slip"):
			slipID, _ := cmd.Flags().GetUint64("slip")
			events, err = svc.ListAuditEventsForSlip(cmd.Context(), slipID, limit)
		case cmd.Flags().Changed("table"):
			tableID, _ := cmd.Flags().GetUint64("table")
			events, err = svc.ListAuditEventsForTable(cmd.Context(), tableID, limit)
		default:
			return errors.New("one of --slip or --table is required")
		}
		if err != nil {
			return errs.Wrap(err, "list audit events")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tOPERATION\tOUTCOME\tACTOR\tBEFORE\tAFTER\tCORRELATION\tAT")
		for _, event := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				event.AuditEventID, event.Operation, event.Outcome, event.ActorID,
				event.BeforeState, event.AfterState, event.CorrelationID, event.OccurredAt)
		}
		return w.Flush()
	}),
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)

	auditListCmd.Flags().Uint64("slip", 0, "Slip id to filter on")
	auditListCmd.Flags().Uint64("table", 0, "Table id to filter on")
	auditListCmd.Flags().Int("limit", 50, "Maximum events to return")
	auditListCmd.MarkFlagsMutuallyExclusive("slip", "table")
}
