package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// FeedCmd creates the feed command
func FeedCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List recent activity records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			records, err := app.Database.ListNotificationRecords(app.Ctx, app.Cfg.CompanyID, limit)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No activity yet.")
				return nil
			}

			fmt.Printf("\nRecent activity (%d records):\n\n", len(records))
			for _, rec := range records {
				marker := "●"
				if rec.Read {
					marker = " "
				}
				fmt.Printf("%s %s  %-22s %s\n", marker, rec.CreatedAt.Format("2006-01-02 15:04"), rec.Type, rec.Body)
				fmt.Printf("    id: %s\n", rec.ID)
			}

			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "Maximum number of records to list")

	markRead := &cobra.Command{
		Use:   "markRead <recordID>",
		Short: "Mark an activity record as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID := args[0]

			app.Logger.Debug("markRead command", zap.String("record_id", recordID))

			if err := app.Database.MarkNotificationRead(app.Ctx, recordID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Record %s marked as read\n", recordID)
			return nil
		},
	}

	cmd.AddCommand(markRead)

	return cmd
}
