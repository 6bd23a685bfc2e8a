package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/arvosec/skywatch/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the case library into the database",
	Long: `Seed the repository's master case library into the SQLite database.
This is useful for local testing when the database is empty; running it
again refreshes the seeded cases in place.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	config := GetConfig()

	logger := log.New(cmd.OutOrStdout(), "[seed] ", log.LstdFlags)
	logger.Println("Seeding case library...")

	// Initialize store
	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	before, err := st.CountCases(ctx)
	if err != nil {
		return fmt.Errorf("failed to count cases: %w", err)
	}

	if err := st.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	after, err := st.CountCases(ctx)
	if err != nil {
		return fmt.Errorf("failed to count cases: %w", err)
	}

	logger.Printf("Seeding completed (%d cases before, %d after)", before, after)
	return nil
}
