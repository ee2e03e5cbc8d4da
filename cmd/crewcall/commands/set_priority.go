package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SetPriorityCmd creates the setPriority command
func SetPriorityCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setPriority <candidateID> <priority>",
		Short: "Move a candidate within a position's contact queue",
		Long: `Changes a candidate's priority. Lower priority is contacted first. The new
order takes effect the next time the queue advances; it does not touch
attempts already in flight.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidateID := args[0]
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("priority must be an integer: %w", err)
			}

			app.Logger.Debug("setPriority command",
				zap.String("candidate_id", candidateID),
				zap.Int("priority", priority))

			if err := app.Database.UpdateCandidatePriority(app.Ctx, candidateID, priority); err != nil {
				return err
			}

			fmt.Printf("\n✓ Candidate %s moved to priority %d\n", candidateID, priority)
			return nil
		},
	}

	return cmd
}
