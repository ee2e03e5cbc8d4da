package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jparkhurst/crewcall/internal/config"
	"github.com/jparkhurst/crewcall/pkg/utils"
)

// AuthCmd creates the auth command
func AuthCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail sending and store the OAuth token",
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
			if err != nil {
				return fmt.Errorf("failed to load OAuth client config: %w", err)
			}

			oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
			if err != nil {
				return fmt.Errorf("failed to build OAuth config: %w", err)
			}

			if _, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, app.Env); err != nil {
				return fmt.Errorf("failed to complete authorization: %w", err)
			}

			fmt.Println("\n✓ Authorization complete, token stored")
			return nil
		},
	}

	return cmd
}
