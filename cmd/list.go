package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/store"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases and activity entries",
	Long: `List repository cases and archived activity entries in a simple text
format. This command works in any terminal environment and provides an
alternative to the console when terminal capabilities are limited.

Examples:
  # List all cases
  skywatch list cases

  # List archived activity for one incident
  skywatch list activity --incident INC-938471

  # Full-text search the activity archive
  skywatch list activity --query "perimeter"`,
	RunE: runList,
}

var (
	listType     string
	listIncident string
	listQuery    string
	listLimit    int
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listType, "type", "cases", "What to list: cases, activity")
	listCmd.Flags().StringVar(&listIncident, "incident", "", "Incident ID for listing activity")
	listCmd.Flags().StringVar(&listQuery, "query", "", "Full-text search over the activity archive")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of items to show")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	// Initialize store
	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	// Determine what to list from args or flags
	var targetType string
	if len(args) > 0 {
		targetType = strings.ToLower(args[0])
	} else {
		targetType = strings.ToLower(listType)
	}

	switch targetType {
	case "cases":
		return listCases(ctx, st)
	case "activity":
		return listActivity(ctx, st)
	default:
		return fmt.Errorf("unknown list type: %s (use 'cases' or 'activity')", targetType)
	}
}

func listCases(ctx context.Context, st *store.Store) error {
	cases, err := st.ListCases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}

	if len(cases) == 0 {
		fmt.Println("No cases found.")
		return nil
	}

	fmt.Printf("Found %d cases:\n\n", len(cases))

	for i, c := range cases {
		fmt.Printf("%d. [%s] %s\n", i+1, strings.ToUpper(string(c.Status)), c.Type)
		fmt.Printf("   ID: %s\n", c.ID)
		fmt.Printf("   Site: %s", c.Site)
		if c.Zone != "" {
			fmt.Printf(" / %s", c.Zone)
		}
		fmt.Println()
		fmt.Printf("   Confidence: %s\n", c.Confidence)
		fmt.Printf("   Evidence: %d items (%s)\n", c.EvidenceCount, c.Integrity)
		fmt.Printf("   Last activity: %s\n", time.UnixMilli(c.Timestamp).Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	return nil
}

func listActivity(ctx context.Context, st *store.Store) error {
	switch {
	case listQuery != "":
		found, err := st.SearchActivity(ctx, listQuery, listLimit)
		if err != nil {
			return fmt.Errorf("failed to search activity: %w", err)
		}
		fmt.Printf("Activity matching %q:\n\n", listQuery)
		return printActivity(found)
	case listIncident != "":
		found, err := st.GetActivityByIncident(ctx, listIncident)
		if err != nil {
			return fmt.Errorf("failed to get activity for %s: %w", listIncident, err)
		}
		fmt.Printf("Activity for incident %s:\n\n", listIncident)
		return printActivity(found)
	default:
		found, err := st.ListActivity(ctx, listLimit)
		if err != nil {
			return fmt.Errorf("failed to list activity: %w", err)
		}
		fmt.Println("Recent activity:")
		fmt.Println()
		return printActivity(found)
	}
}

func printActivity(entries []incident.LogEntry) error {
	if len(entries) == 0 {
		fmt.Println("No activity entries found.")
		return nil
	}

	for i, e := range entries {
		fmt.Printf("%d. [%s] %s\n", i+1, e.Result, e.Action)
		fmt.Printf("   Time: %s (%s)\n", time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04:05"), e.RelativeTime())
		if e.IncidentID != "" {
			fmt.Printf("   Incident: %s\n", e.IncidentID)
		}
		fmt.Printf("   Actor: %s\n", e.Actor)
		if e.Site != "" {
			fmt.Printf("   Site: %s", e.Site)
			if e.Zone != "" {
				fmt.Printf(" / %s", e.Zone)
			}
			fmt.Println()
		}
		if e.Asset != "" {
			fmt.Printf("   Asset: %s\n", e.Asset)
		}
		if e.Details != "" {
			fmt.Printf("   Details: %s\n", e.Details)
		}
		fmt.Println()
	}

	return nil
}
