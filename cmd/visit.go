package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"pitboss/internal/bootstrap"
	"pitboss/internal/bootstrap/logging"
	"pitboss/internal/errs"
	"pitboss/internal/usecase/floor"
)

var visitCmd = &cobra.Command{
	Use:   "visit",
	Short: "Manage player visits",
}

var visitStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start (or resume) a player's visit for the current gaming day",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		playerID, _ := cmd.Flags().GetString("player")
		visit, err := svc.StartVisit(ctx, floor.StartVisitInput{
			PlayerID: playerID,
			ActorID:  actorFlag(cmd),
			IdemKey:  idemKeyFlag(cmd),
		})
		if err != nil {
			logging.Error(ctx, "start visit failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start visit")
		}

		state := "started"
		if visit.Resumed {
			state = "resumed"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "visit %d %s for player %s (gaming day %s)\n",
			visit.VisitID, state, visit.PlayerID, visit.GamingDay); err != nil {
			return errs.Wrap(err, "write visit output")
		}
		return nil
	}),
}

var visitEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End a visit (fails while slips remain open)",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		visitID, _ := cmd.Flags().GetUint64("visit")
		visit, err := svc.EndVisit(ctx, floor.EndVisitInput{
			VisitID: visitID,
			ActorID: actorFlag(cmd),
			IdemKey: idemKeyFlag(cmd),
		})
		if err != nil {
			logging.Error(ctx, "end visit failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "end visit")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "visit %d ended\n", visit.VisitID); err != nil {
			return errs.Wrap(err, "write visit output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(visitCmd)
	visitCmd.AddCommand(visitStartCmd, visitEndCmd)

	visitStartCmd.Flags().String("player", "", "Player id")
	addMutationFlags(visitStartCmd)
	_ = visitStartCmd.MarkFlagRequired("player")

	visitEndCmd.Flags().Uint64("visit", 0, "Visit id")
	addMutationFlags(visitEndCmd)
	_ = visitEndCmd.MarkFlagRequired("visit")
}
