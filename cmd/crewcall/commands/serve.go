package commands

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/scheduler"
	"github.com/jparkhurst/crewcall/pkg/server"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the deadline scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			addr := app.Cfg.ListenAddr
			if addr == "" {
				addr = ":8080"
			}

			sched := scheduler.New(
				app.Database,
				app.Outreach,
				app.Alerter,
				app.Logger,
				time.Duration(app.Cfg.Scheduler.PollIntervalSecs)*time.Second,
			)

			go func() {
				if err := sched.Run(ctx); err != nil {
					app.Logger.Error("Scheduler failed", zap.Error(err))
				}
			}()

			httpApp := &server.App{
				Outreach:  app.Outreach,
				CallCards: app.CallCards,
				Feed:      app.Database,
				Logger:    app.Logger,
				CompanyID: app.Cfg.CompanyID,
			}

			return server.Serve(ctx, addr, httpApp)
		},
	}

	return cmd
}
