package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SendCallCardsCmd creates the sendCallCards command
func SendCallCardsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sendCallCards <callSheetID> <documentURL>",
		Short: "Send the call card to every recipient on a call sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			callSheetID := args[0]
			documentURL := args[1]

			app.Logger.Debug("sendCallCards command", zap.String("call_sheet_id", callSheetID))

			summary, err := app.CallCards.SendCallCards(app.Ctx, callSheetID, documentURL)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Sent %d of %d call cards\n", summary.Succeeded(), summary.Attempted())

			if len(summary.Failures) > 0 {
				fmt.Printf("\n⚠️  Failed to reach %d recipients:\n", len(summary.Failures))
				for _, f := range summary.Failures {
					fmt.Printf("  ✗ %s: %s\n", f.Recipient, f.Err)
				}
			}

			return nil
		},
	}

	return cmd
}
