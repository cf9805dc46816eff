package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pitboss/internal/bootstrap"
	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/usecase/floor"
)

var gamingDayCmd = &cobra.Command{
	Use:   "gamingday",
	Short: "Resolve which gaming day an instant belongs to",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *floor.Service) error {
		loc, err := time.LoadLocation(app.Config.Casino.Timezone)
		if err != nil {
			return errs.Wrapf(err, "load timezone %q", app.Config.Casino.Timezone)
		}

		instant := time.Now()
		if at, _ := cmd.Flags().GetString("at"); at != "" {
			instant, err = time.Parse(time.RFC3339, at)
			if err != nil {
				return errs.Wrapf(err, "parse instant %q", at)
			}
		}

		cutoff := app.Config.Casino.GamingDayCutoff
		day := domainfloor.GamingDay(cutoff, loc, instant)
		start, ok := domainfloor.GamingDayStart(cutoff, loc, day)
		if !ok {
			return fmt.Errorf("resolve start of gaming day %q", day)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (opened %s, cutoff %02d:00 %s)\n",
			day, start.Format(time.RFC3339), cutoff, loc); err != nil {
			return errs.Wrap(err, "write gaming day output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(gamingDayCmd)
	gamingDayCmd.Flags().String("at", "", "RFC3339 instant to resolve (defaults to now)")
}
