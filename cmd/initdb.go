package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pitboss/internal/bootstrap"
	"pitboss/internal/bootstrap/layout"
	"pitboss/internal/bootstrap/logging"
	"pitboss/internal/errs"
	"pitboss/internal/usecase/floor"
)

var initDbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create or migrate the floor schema, optionally seeding tables from a layout file",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "schema init failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "init schema")
		}

		layoutFile, _ := cmd.Flags().GetString("layout")
		if layoutFile != "" {
			if err := seedLayout(cmd, svc, layoutFile); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "database ready"); err != nil {
			return errs.Wrap(err, "write initdb output")
		}
		return nil
	}),
}

func seedLayout(cmd *cobra.Command, svc *floor.Service, layoutFile string) error {
	ctx := cmd.Context()

	l, err := layout.Load(layoutFile)
	if err != nil {
		return errs.Wrap(err, "load layout")
	}

	actor := actorFlag(cmd)
	for _, entry := range l.Tables {
		table, err := svc.CreateTable(ctx, floor.CreateTableInput{
			Label:     entry.Label,
			GameType:  entry.Game,
			SeatCount: entry.Seats,
			MinBet:    entry.MinBet,
			MaxBet:    entry.MaxBet,
			ActorID:   actor,
			IdemKey:   "seed:" + entry.Label,
		})
		if err != nil {
			return errs.Wrapf(err, "seed table %q", entry.Label)
		}

		if entry.Active {
			if _, err := svc.ActivateTable(ctx, table.TableID, actor, "seed-activate:"+entry.Label); err != nil {
				return errs.Wrapf(err, "activate seeded table %q", entry.Label)
			}
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded table %d: %s\n", table.TableID, entry.Label); err != nil {
			return errs.Wrap(err, "write seed output")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initDbCmd)
	initDbCmd.Flags().String("layout", "", "Floor layout YAML to seed tables from")
	initDbCmd.Flags().String("actor", "provisioning", "Acting staff member id for seeded records")
}
