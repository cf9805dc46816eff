package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pitboss/internal/bootstrap"
	"pitboss/internal/bootstrap/logging"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
	"pitboss/internal/usecase/floor"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage gaming tables",
}

var tableCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new table (starts inactive)",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		label, _ := cmd.Flags().GetString("label")
		game, _ := cmd.Flags().GetString("game")
		seats, _ := cmd.Flags().GetInt("seats")
		minBet, _ := cmd.Flags().GetInt64("min-bet")
		maxBet, _ := cmd.Flags().GetInt64("max-bet")

		table, err := svc.CreateTable(ctx, floor.CreateTableInput{
			Label:     label,
			GameType:  game,
			SeatCount: seats,
			MinBet:    minBet,
			MaxBet:    maxBet,
			ActorID:   actorFlag(cmd),
			IdemKey:   idemKeyFlag(cmd),
		})
		if err != nil {
			logging.Error(ctx, "create table failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create table")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created table %d: %s (%s, %d seats)\n", table.TableID, table.Label, table.GameType, table.SeatCount); err != nil {
			return errs.Wrap(err, "write create output")
		}
		return nil
	}),
}

var tableActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Open a table for new rating slips",
	RunE:  tableTransitionRunE("activate", (*floor.Service).ActivateTable),
}

var tableDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Stop a table from accepting new rating slips",
	RunE:  tableTransitionRunE("deactivate", (*floor.Service).DeactivateTable),
}

var tableCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Permanently close a table (fails while slips remain open)",
	RunE:  tableTransitionRunE("close", (*floor.Service).CloseTable),
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the casino's tables",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		tables, err := svc.ListTables(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "list tables")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tGAME\tSTATUS\tSEATS\tMIN\tMAX")
		for _, table := range tables {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
				table.TableID, table.Label, table.GameType, table.Status, table.SeatCount, table.MinBet, table.MaxBet)
		}
		return w.Flush()
	}),
}

func tableTransitionRunE(verb string, op func(*floor.Service, context.Context, uint64, string, string) (ports.Table, error)) func(cmd *cobra.Command, args []string) error {
	return withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		tableID, _ := cmd.Flags().GetUint64("table")
		table, err := op(svc, ctx, tableID, actorFlag(cmd), idemKeyFlag(cmd))
		if err != nil {
			logging.Error(ctx, verb+" table failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrapf(err, "%s table", verb)
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "table %d is now %s\n", table.TableID, table.Status); err != nil {
			return errs.Wrap(err, "write table output")
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableCreateCmd, tableActivateCmd, tableDeactivateCmd, tableCloseCmd, tableListCmd)

	tableCreateCmd.Flags().String("label", "", "Table label, e.g. BJ-01")
	tableCreateCmd.Flags().String("game", "", "Game type, e.g. blackjack")
	tableCreateCmd.Flags().Int("seats", 7, "Seat count")
	tableCreateCmd.Flags().Int64("min-bet", 0, "Minimum bet in cents")
	tableCreateCmd.Flags().Int64("max-bet", 0, "Maximum bet in cents")
	addMutationFlags(tableCreateCmd)
	_ = tableCreateCmd.MarkFlagRequired("label")
	_ = tableCreateCmd.MarkFlagRequired("game")

	for _, c := range []*cobra.Command{tableActivateCmd, tableDeactivateCmd, tableCloseCmd} {
		c.Flags().Uint64("table", 0, "Table id")
		addMutationFlags(c)
		_ = c.MarkFlagRequired("table")
	}
}
