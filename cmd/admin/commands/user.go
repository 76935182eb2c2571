package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sankpost/sankpost-api/internal/config"
	"github.com/sankpost/sankpost-api/internal/database"
	"github.com/sankpost/sankpost-api/internal/models"
)

// NewUserCmd creates the user command with a show subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect user accounts",
	}
	cmd.AddCommand(newUserShowCmd())
	return cmd
}

func newUserShowCmd() *cobra.Command {
	var providerID, email string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user by provider id or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" && email == "" {
				return fmt.Errorf("--provider-id or --email is required")
			}

			repo, closeDB, err := openUserRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			var user *models.User
			if providerID != "" {
				user, err = repo.GetByProviderID(context.Background(), providerID)
			} else {
				user, err = repo.GetByEmail(context.Background(), email)
			}
			if err != nil {
				return fmt.Errorf("look up user: %w", err)
			}

			fmt.Printf("ID:          %s\n", user.ID)
			fmt.Printf("Provider ID: %s\n", user.ProviderID)
			fmt.Printf("Email:       %s\n", user.Email)
			fmt.Printf("Name:        %s\n", user.Name)
			fmt.Printf("Points:      %d\n", user.Points)
			fmt.Printf("Created:     %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&providerID, "provider-id", "", "External identity provider id")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	return cmd
}

// openUserRepo loads config, connects and returns the user repository plus a
// close function for the connection.
func openUserRepo() (*database.UserRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return database.NewUserRepository(db), func() { _ = db.Close() }, nil
}
