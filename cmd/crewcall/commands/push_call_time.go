package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/db"
)

// PushCallTimeCmd creates the pushCallTime command
func PushCallTimeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pushCallTime <callSheetID>",
		Short: "Shift a call sheet's call times, optionally notifying recipients",
		Long: `Shifts every recipient's call time on the given sheet by the --hours and
--minutes offset. With --notify, recipients receive an updated call card (a
revised one if they were already sent a card). Without --notify, delivery
statuses are reset so the next send goes out as a fresh card. An offset of
zero with --notify resends the current card unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callSheetID := args[0]
			hours, _ := cmd.Flags().GetInt("hours")
			minutes, _ := cmd.Flags().GetInt("minutes")
			notify, _ := cmd.Flags().GetBool("notify")
			documentRef, _ := cmd.Flags().GetString("document-ref")

			app.Logger.Debug("pushCallTime command",
				zap.String("call_sheet_id", callSheetID),
				zap.Int("hours", hours),
				zap.Int("minutes", minutes),
				zap.Bool("notify", notify))

			push := &db.CallCardPush{
				ID:          uuid.NewString(),
				CallSheetID: callSheetID,
				Hours:       hours,
				Minutes:     minutes,
				Notify:      notify,
				DocumentRef: documentRef,
			}

			summary, err := app.CallCards.ApplyPush(app.Ctx, push)
			if err != nil {
				return err
			}

			if !notify {
				fmt.Println("\n✓ Push recorded, delivery statuses reset (no messages sent)")
				return nil
			}

			fmt.Printf("\n✓ Push applied, notified %d of %d recipients\n", summary.Succeeded(), summary.Attempted())

			if len(summary.Failures) > 0 {
				fmt.Printf("\n⚠️  Failed to reach %d recipients:\n", len(summary.Failures))
				for _, f := range summary.Failures {
					fmt.Printf("  ✗ %s: %s\n", f.Recipient, f.Err)
				}
			}

			return nil
		},
	}

	cmd.Flags().Int("hours", 0, "Hours to shift call times by (negative moves earlier)")
	cmd.Flags().Int("minutes", 0, "Minutes to shift call times by (negative moves earlier)")
	cmd.Flags().Bool("notify", false, "Send updated call cards to recipients")
	cmd.Flags().String("document-ref", "", "Call sheet document URL to include in updated cards")

	return cmd
}
