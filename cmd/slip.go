package cmd

import (
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

var slipCmd = &cobra.Command{
	Use:   "slip",
	Short: "Manage rating slips",
}

var slipOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a rating slip on a free seat",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		tableID, _ := cmd.Flags().GetUint64("table")
		seat, _ := cmd.Flags().GetInt("seat")
		visitID, _ := cmd.Flags().GetUint64("visit")
		playerID, _ := cmd.Flags().GetString("player")
		averageBet, _ := cmd.Flags().GetInt64("average-bet")

		slip, err := svc.CreateSlip(ctx, floor.CreateSlipInput{
			TableID:    tableID,
			Seat:       seat,
			VisitID:    visitID,
			PlayerID:   playerID,
			AverageBet: averageBet,
			ActorID:    actorFlag(cmd),
			IdemKey:    idemKeyFlag(cmd),
		})
		if err != nil {
			logging.Error(ctx, "open slip failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "open slip")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "opened slip %d at table %d seat %s (gaming day %s)\n",
			slip.SlipID, slip.TableID, seatString(slip.SeatNumber), slip.GamingDay); err != nil {
			return errs.Wrap(err, "write slip output")
		}
		return nil
	}),
}

var slipPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause a slip while the player steps away",
	RunE: slipTransitionRunE("pause", func(svc *floor.Service, cmd *cobra.Command, slipID uint64) (ports.RatingSlip, error) {
		return svc.PauseSlip(cmd.Context(), floor.PauseSlipInput{
			SlipID:  slipID,
			ActorID: actorFlag(cmd),
			IdemKey: idemKeyFlag(cmd),
		})
	}),
}

var slipResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused slip",
	RunE: slipTransitionRunE("resume", func(svc *floor.Service, cmd *cobra.Command, slipID uint64) (ports.RatingSlip, error) {
		return svc.ResumeSlip(cmd.Context(), floor.ResumeSlipInput{
			SlipID:  slipID,
			ActorID: actorFlag(cmd),
			IdemKey: idemKeyFlag(cmd),
		})
	}),
}

var slipCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Settle and close a slip, releasing its seat",
	RunE: slipTransitionRunE("close", func(svc *floor.Service, cmd *cobra.Command, slipID uint64) (ports.RatingSlip, error) {
		input := floor.CloseSlipInput{
			SlipID:  slipID,
			ActorID: actorFlag(cmd),
			IdemKey: idemKeyFlag(cmd),
		}
		if cmd.Flags().Changed("chips-taken") {
			chips, _ := cmd.Flags().GetInt64("chips-taken")
			input.ChipsTaken = &chips
		}
		return svc.CloseSlip(cmd.Context(), input)
	}),
}

var slipMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a slip to another seat, closing it and opening a successor",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		slipID, _ := cmd.Flags().GetUint64("slip")
		destTable, _ := cmd.Flags().GetUint64("dest-table")
		destSeat, _ := cmd.Flags().GetInt("dest-seat")

		result, err := svc.MoveSlip(ctx, floor.MoveSlipInput{
			SlipID:      slipID,
			DestTableID: destTable,
			DestSeat:    destSeat,
			ActorID:     actorFlag(cmd),
			IdemKey:     idemKeyFlag(cmd),
		})
		if err != nil {
			logging.Error(ctx, "move slip failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "move slip")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "moved: slip %d closed, slip %d opened at table %d seat %s (correlation %s)\n",
			result.ClosedSlip.SlipID, result.NewSlip.SlipID, result.NewSlip.TableID,
			seatString(result.NewSlip.SeatNumber), result.CorrelationID); err != nil {
			return errs.Wrap(err, "write move output")
		}
		return nil
	}),
}

var slipStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a slip's current lifecycle status",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		slipID, _ := cmd.Flags().GetUint64("slip")

		status, err := svc.SlipStatus(cmd.Context(), slipID)
		if err != nil {
			return errs.Wrap(err, "slip status")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "slip %d is %s\n", slipID, status); err != nil {
			return errs.Wrap(err, "write status output")
		}
		return nil
	}),
}

var slipListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a table's open and paused slips in seat order",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		tableID, _ := cmd.Flags().GetUint64("table")

		slips, err := svc.GetActiveSlipsForTable(cmd.Context(), tableID)
		if err != nil {
			return errs.Wrap(err, "list slips")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLIP\tSEAT\tVISIT\tPLAYER\tSTATUS\tAVG BET\tSTARTED")
		for _, slip := range slips {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%d\t%s\n",
				slip.SlipID, seatString(slip.SeatNumber), slip.VisitID,
				playerString(slip.PlayerID), slip.Status, slip.AverageBet, slip.StartTime)
		}
		return w.Flush()
	}),
}

var seatmapCmd = &cobra.Command{
	Use:   "seatmap",
	Short: "Show which seats at a table are held by which slips",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		tableID, _ := cmd.Flags().GetUint64("table")

		table, err := svc.GetTable(cmd.Context(), tableID)
		if err != nil {
			return errs.Wrap(err, "load table")
		}
		seats, err := svc.SeatMap(cmd.Context(), tableID)
		if err != nil {
			return errs.Wrap(err, "load seat map")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEAT\tSLIP")
		for seat := 1; seat <= table.SeatCount; seat++ {
			if slipID, ok := seats[seat]; ok {
				fmt.Fprintf(w, "%d\t%d\n", seat, slipID)
			} else {
				fmt.Fprintf(w, "%d\t-\n", seat)
			}
		}
		return w.Flush()
	}),
}

func slipTransitionRunE(verb string, op func(svc *floor.Service, cmd *cobra.Command, slipID uint64) (ports.RatingSlip, error)) func(cmd *cobra.Command, args []string) error {
	return withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *floor.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		slipID, _ := cmd.Flags().GetUint64("slip")
		slip, err := op(svc, cmd, slipID)
		if err != nil {
			logging.Error(ctx, verb+" slip failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrapf(err, "%s slip", verb)
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "slip %d is now %s\n", slip.SlipID, slip.Status); err != nil {
			return errs.Wrap(err, "write slip output")
		}
		return nil
	})
}

func seatString(seat *int) string {
	if seat == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *seat)
}

func playerString(player *string) string {
	if player == nil || *player == "" {
		return "(ghost)"
	}
	return *player
}

func init() {
	rootCmd.AddCommand(slipCmd, seatmapCmd)
	slipCmd.AddCommand(slipOpenCmd, slipPauseCmd, slipResumeCmd, slipCloseCmd, slipMoveCmd, slipStatusCmd, slipListCmd)

	slipOpenCmd.Flags().Uint64("table", 0, "Table id")
	slipOpenCmd.Flags().Int("seat", 0, "Seat number (1-based)")
	slipOpenCmd.Flags().Uint64("visit", 0, "Visit id the slip belongs to")
	slipOpenCmd.Flags().String("player", "", "Player id (empty opens a ghost session)")
	slipOpenCmd.Flags().Int64("average-bet", 0, "Average bet in cents")
	addMutationFlags(slipOpenCmd)
	_ = slipOpenCmd.MarkFlagRequired("table")
	_ = slipOpenCmd.MarkFlagRequired("seat")
	_ = slipOpenCmd.MarkFlagRequired("visit")

	for _, c := range []*cobra.Command{slipPauseCmd, slipResumeCmd, slipCloseCmd} {
		c.Flags().Uint64("slip", 0, "Slip id")
		addMutationFlags(c)
		_ = c.MarkFlagRequired("slip")
	}
	slipCloseCmd.Flags().Int64("chips-taken", 0, "Chips the player walked with, in cents")

	slipMoveCmd.Flags().Uint64("slip", 0, "Slip id to move")
	slipMoveCmd.Flags().Uint64("dest-table", 0, "Destination table id")
	slipMoveCmd.Flags().Int("dest-seat", 0, "Destination seat number (1-based)")
	addMutationFlags(slipMoveCmd)
	_ = slipMoveCmd.MarkFlagRequired("slip")
	_ = slipMoveCmd.MarkFlagRequired("dest-table")
	_ = slipMoveCmd.MarkFlagRequired("dest-seat")

	slipStatusCmd.Flags().Uint64("slip", 0, "Slip id")
	_ = slipStatusCmd.MarkFlagRequired("slip")

	slipListCmd.Flags().Uint64("table", 0, "Table id")
	_ = slipListCmd.MarkFlagRequired("table")

	seatmapCmd.Flags().Uint64("table", 0, "Table id")
	_ = seatmapCmd.MarkFlagRequired("table")
}
