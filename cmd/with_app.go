package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"pitboss/internal/bootstrap"
	"pitboss/internal/bootstrap/logging"
	"pitboss/internal/errs"
	"pitboss/internal/usecase/floor"
)

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *floor.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var svc *floor.Service
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svc),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, app, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// idemKeyFlag reads --idem-key, generating one when the operator did not
// supply a retry token of their own.
func idemKeyFlag(cmd *cobra.Command) string {
	key, _ := cmd.Flags().GetString("idem-key")
	if key == "" {
		key = uuid.NewString()
	}
	return key
}

func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	return actor
}

func addMutationFlags(cmd *cobra.Command) {
	cmd.Flags().String("actor", "floor-supervisor", "Acting staff member id")
	cmd.Flags().String("idem-key", "", "Idempotency key (generated when empty)")
}
