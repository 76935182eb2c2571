package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sankpost/sankpost-api/cmd/admin/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "sankpost-admin",
		Short: "Administration tool for the SankPost API",
		Long:  "CLI tool for inspecting users, granting points and browsing generation history",
	}

	rootCmd.AddCommand(commands.NewUserCmd())
	rootCmd.AddCommand(commands.NewPointsCmd())
	rootCmd.AddCommand(commands.NewHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
