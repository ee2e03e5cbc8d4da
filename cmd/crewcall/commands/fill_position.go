package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// FillPositionCmd creates the fillPosition command
func FillPositionCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fillPosition <positionID>",
		Short: "Start contacting the next untried candidate for a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positionID := args[0]

			app.Logger.Debug("fillPosition command", zap.String("position_id", positionID))

			if err := app.Outreach.AdvanceQueue(app.Ctx, positionID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Queue advanced for position %s\n", positionID)
			return nil
		},
	}

	return cmd
}
