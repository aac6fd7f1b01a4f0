package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/realtime"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish workflow events onto the realtime feed for testing connected clients`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long: `Publish a workflow event through the event bus and the configured realtime relay.
Supported types: request.changed, comment.added, notification.created, profile.changed`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishTestEvent(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to publish event: %v\n", err)
			os.Exit(1)
		}
	},
}

var (
	eventOrganizationID string
	eventRequestID      string
	eventEmployeeID     string
	eventDepartment     string
	eventStatus         string
	eventUserID         string
	eventProfileID      string
)

func buildTestEvent(eventType string) (events.Event, error) {
	snapshot := events.RequestSnapshot{
		RequestID:      eventRequestID,
		OrganizationID: eventOrganizationID,
		EmployeeID:     eventEmployeeID,
		Department:     eventDepartment,
		Status:         eventStatus,
	}

	switch eventType {
	case events.EventTypeRequestChanged:
		return events.NewRequestChangedEvent(snapshot, events.ChangeStatusChanged, "cli"), nil
	case events.EventTypeCommentAdded:
		return events.NewCommentAddedEvent("cli-comment", snapshot, true), nil
	case events.EventTypeNotificationCreated:
		if eventUserID == "" {
			return nil, fmt.Errorf("--user is required for %s", eventType)
		}
		return events.NewNotificationCreatedEvent("cli-notification", eventUserID, eventRequestID), nil
	case events.EventTypeProfileChanged:
		if eventProfileID == "" {
			return nil, fmt.Errorf("--profile is required for %s", eventType)
		}
		return events.NewProfileChangedEvent(eventProfileID, eventOrganizationID), nil
	}
	return nil, fmt.Errorf("unsupported event type %q", eventType)
}

func publishTestEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := mustLoadConfig()
	lg := logger.LoggerWrapper()

	event, err := buildTestEvent(eventType)
	if err != nil {
		return err
	}

	relay := newRelay(cfg.Realtime, lg)
	defer relay.Close()

	bus := events.NewEventBus(lg)
	realtime.NewBridge(relay, lg).Register(bus)

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	if err := bus.PublishSync(ctx, event); err != nil {
		return err
	}

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventOrganizationID, "org", "", "organization id")
	publishEventCmd.Flags().StringVar(&eventRequestID, "request", "", "request id")
	publishEventCmd.Flags().StringVar(&eventEmployeeID, "employee", "", "request owner profile id")
	publishEventCmd.Flags().StringVar(&eventDepartment, "department", "", "request department")
	publishEventCmd.Flags().StringVar(&eventStatus, "status", "pending", "request status")
	publishEventCmd.Flags().StringVar(&eventUserID, "user", "", "notification recipient profile id")
	publishEventCmd.Flags().StringVar(&eventProfileID, "profile", "", "changed profile id")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
