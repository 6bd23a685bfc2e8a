package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arvosec/skywatch/internal/bus"
	"github.com/arvosec/skywatch/internal/incident"
)

// triggerCmd represents the trigger command
var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Publish a demo alert onto the event bus",
	Long: `Publish the canned demo alert pair onto the Redis alerts stream so a
running 'skywatch serve' instance picks it up. This exercises the full
external alert path: bus publish, consumer-group delivery, workflow
injection and activity archival.

Requires a reachable Redis; without one the alert is logged but not
delivered anywhere.

Examples:
  # Fire the demo alert against the default Redis
  skywatch trigger

  # Target a specific Redis instance
  skywatch trigger --redis redis://10.0.0.5:6379`,
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	logger := log.New(os.Stderr, "[trigger] ", log.LstdFlags)

	eventBus := bus.NewBus(config.Redis.URL, logger)
	defer eventBus.Close()

	triggerTime := time.Now().UnixMilli()
	primary := incident.DemoAlert(triggerTime)
	companion := incident.CompanionAlert(triggerTime)
	entries := incident.TriggerLogEntries(triggerTime, primary.ID)

	msg := bus.AlertMessage{
		Alert:      primary,
		Companion:  &companion,
		LogEntries: entries,
		Source:     "trigger",
		Timestamp:  time.Now(),
	}

	if err := eventBus.PublishAlert(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	if err := eventBus.HealthCheck(ctx); err != nil {
		fmt.Printf("Warning: bus health check failed (%v); the alert may not be delivered\n", err)
	}

	fmt.Printf("Published alert %s (companion %s) to the alerts stream\n", primary.ID, companion.ID)
	return nil
}
