package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sankpost/sankpost-api/internal/config"
	"github.com/sankpost/sankpost-api/internal/database"
)

// NewHistoryCmd creates the history command with a list subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse generation history",
	}
	cmd.AddCommand(newHistoryListCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var providerID string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's recent generations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				return fmt.Errorf("--provider-id is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			repo := database.NewContentRepository(db)
			records, err := repo.ListRecent(context.Background(), providerID, limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("No history for this user.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  [%s]  %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.ContentType, rec.Prompt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&providerID, "provider-id", "", "External identity provider id (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum records to list")
	return cmd
}
