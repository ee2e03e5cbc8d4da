package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/cmd/crewcall/commands"
	"github.com/jparkhurst/crewcall/internal/config"
	"github.com/jparkhurst/crewcall/pkg/alert"
	"github.com/jparkhurst/crewcall/pkg/clients/gmailclient"
	"github.com/jparkhurst/crewcall/pkg/clients/smsclient"
	"github.com/jparkhurst/crewcall/pkg/core/callcard"
	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/core/outreach"
	"github.com/jparkhurst/crewcall/pkg/postgres"
	"github.com/jparkhurst/crewcall/pkg/utils"
	"github.com/jparkhurst/crewcall/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crewcall",
		Short: "Crewcall - crew outreach and call card notifications",
		Long:  `A tool for contacting ranked candidates for open crew positions, tracking their replies, and delivering batched call card notifications.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.AuthCmd(app))
	rootCmd.AddCommand(commands.FillPositionCmd(app))
	rootCmd.AddCommand(commands.SetPriorityCmd(app))
	rootCmd.AddCommand(commands.SendCallCardsCmd(app))
	rootCmd.AddCommand(commands.PushCallTimeCmd(app))
	rootCmd.AddCommand(commands.FeedCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, clients, database, and services
func initApp(ctx context.Context) error {
	// A local .env is optional, used for secret overrides during development
	_ = godotenv.Load()

	app.Env = env
	app.Ctx = ctx

	var err error

	// Initialize logger
	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Connect to the database
	app.Logger.Info("Connecting to database")
	app.Database, err = postgres.NewDB(ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Logger.Debug("Database connection established")

	if app.Cfg.AlertWebhookURL != "" {
		app.Alerter = alert.NewWebhookAlerter(app.Cfg.AlertWebhookURL, app.Logger)
	} else {
		app.Alerter = alert.NopAlerter{}
	}

	smsClient := smsclient.NewClient(
		app.Cfg.SMSProvider.APIBaseURL,
		app.Cfg.SMSProvider.AccountSID,
		app.Cfg.SMSProvider.AuthToken,
	)

	// Email sending is optional: it needs a stored OAuth token from the auth
	// command. Without one, SMS-only operation continues.
	var emailSender delivery.EmailSender
	if gmailClient := initGmail(ctx); gmailClient != nil {
		emailSender = gmailClient
	}

	app.Pipeline = delivery.NewPipeline(
		delivery.Config{
			SMSBatchSize:    app.Cfg.Delivery.SMSBatchSize,
			EmailBatchSize:  app.Cfg.Delivery.EmailBatchSize,
			InterBatchDelay: time.Duration(app.Cfg.Delivery.InterBatchDelaySecs) * time.Second,
		},
		smsClient,
		emailSender,
		app.Database,
		app.Alerter,
		app.Logger,
	)

	app.Outreach = outreach.NewService(
		app.Database,
		app.Pipeline,
		app.Alerter,
		app.Logger,
		outreach.Config{
			ResponseWindow:    time.Duration(app.Cfg.Outreach.ResponseWindowHours) * time.Hour,
			StartInterval:     time.Duration(app.Cfg.Outreach.StartIntervalSecs) * time.Second,
			FromNumber:        app.Cfg.SMSProvider.FromNumber,
			StatusCallbackURL: app.Cfg.SMSProvider.StatusCallbackURL,
			ContactCardURL:    app.Cfg.SMSProvider.ContactCardURL,
			CompanyID:         app.Cfg.CompanyID,
		},
	)

	app.CallCards = callcard.NewService(
		app.Database,
		app.Pipeline,
		app.Logger,
		callcard.Config{
			FromNumber:        app.Cfg.SMSProvider.FromNumber,
			StatusCallbackURL: app.Cfg.SMSProvider.StatusCallbackURL,
			ContactCardURL:    app.Cfg.SMSProvider.ContactCardURL,
			CompanyID:         app.Cfg.CompanyID,
		},
	)

	app.Logger.Info("Application initialized")

	return nil
}

// initGmail builds the Gmail client from the stored OAuth token, or returns
// nil when email is not configured
func initGmail(ctx context.Context) *gmailclient.Client {
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		app.Logger.Warn("No OAuth client config, email sending disabled", zap.Error(err))
		return nil
	}

	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		app.Logger.Warn("Invalid OAuth client config, email sending disabled", zap.Error(err))
		return nil
	}

	token, err := utils.GetToken(ctx, oauthConfig, env)
	if err != nil {
		app.Logger.Warn("No stored OAuth token, email sending disabled (run the auth command)", zap.Error(err))
		return nil
	}

	client, err := gmailclient.NewClient(ctx, oauthCfg, token, app.Cfg.GmailUserID, app.Cfg.GmailSender)
	if err != nil {
		app.Logger.Warn("Failed to create gmail client, email sending disabled", zap.Error(err))
		return nil
	}

	app.Logger.Debug("Gmail client initialized")
	return client
}
