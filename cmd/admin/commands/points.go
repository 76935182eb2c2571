package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewPointsCmd creates the points command with a grant subcommand.
func NewPointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Manage user point balances",
	}
	cmd.AddCommand(newPointsGrantCmd())
	return cmd
}

func newPointsGrantCmd() *cobra.Command {
	var providerID string
	var amount int
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant (or with a negative amount, revoke) points",
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				return fmt.Errorf("--provider-id is required")
			}
			if amount == 0 {
				return fmt.Errorf("--amount must be non-zero")
			}

			repo, closeDB, err := openUserRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			user, err := repo.AdjustPoints(context.Background(), providerID, amount)
			if err != nil {
				return fmt.Errorf("adjust points: %w", err)
			}

			fmt.Printf("Adjusted points by %d. New balance: %d\n", amount, user.Points)
			return nil
		},
	}
	cmd.Flags().StringVar(&providerID, "provider-id", "", "External identity provider id (required)")
	cmd.Flags().IntVar(&amount, "amount", 0, "Points to add; negative to remove (required)")
	return cmd
}
