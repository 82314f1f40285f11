package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewEventCmd создаёт группу команд для работы с событиями.
func NewEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Publish and inspect application events",
	}

	cmd.AddCommand(
		newEventListCmd(clientFn, outputFn),
		newEventPublishCmd(clientFn, outputFn),
	)

	return cmd
}

func newEventListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var eventType, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			events, err := client.ListEvents(eventType, status)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TYPE", "SOURCE", "STATUS", "EXECUTIONS", "CREATED"}
			rows := make([][]string, len(events))
			for i, e := range events {
				rows[i] = []string{
					e.ID,
					e.EventType,
					e.EventSource,
					e.Status,
					strconv.Itoa(len(e.TriggeredExecutions)),
					e.CreatedAt,
				}
			}

			out.Print(headers, rows, events)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "Filter by event type")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING/PROCESSED/FAILED)")

	return cmd
}

func newEventPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var eventType, eventSource, payloadJSON string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an application event",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			payload, err := parseInputs(payloadJSON)
			if err != nil {
				return err
			}

			event, err := client.IngestEvent(IngestEventRequest{
				EventType:   eventType,
				EventSource: eventSource,
				Payload:     payload,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event %s: %s, %d execution(s) triggered",
				event.ID, event.Status, len(event.TriggeredExecutions)))
			out.JSON(event)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "Event type, e.g. scene.ingested (required)")
	cmd.Flags().StringVar(&eventSource, "source", "", "Event source service")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Event payload as JSON")
	cmd.MarkFlagRequired("type")

	return cmd
}
