package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTriggerCmd создаёт группу команд для управления триггерами.
func NewTriggerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Manage workflow triggers",
	}

	cmd.AddCommand(
		newTriggerListCmd(clientFn, outputFn),
		newTriggerCreateCmd(clientFn, outputFn),
		newTriggerShowCmd(clientFn, outputFn),
		newTriggerDeleteCmd(clientFn, outputFn),
		newTriggerEnableCmd(clientFn, outputFn),
		newTriggerDisableCmd(clientFn, outputFn),
		newTriggerFireCmd(clientFn, outputFn),
		newTriggerRotateSecretCmd(clientFn, outputFn),
		newTriggerStatsCmd(clientFn, outputFn),
	)

	return cmd
}

var triggerHeaders = []string{"ID", "WORKFLOW", "NAME", "TYPE", "ENABLED", "FIRED", "LAST_STATUS"}

func triggerRow(t *TriggerResponse) []string {
	return []string{
		t.ID,
		t.WorkflowID,
		t.Name,
		t.Type,
		strconv.FormatBool(t.Enabled),
		strconv.Itoa(t.ExecutionCount),
		t.LastExecutionStatus,
	}
}

func newTriggerListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID, triggerType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			triggers, err := client.ListTriggers(workflowID, triggerType)
			if err != nil {
				return err
			}

			rows := make([][]string, len(triggers))
			for i := range triggers {
				rows[i] = triggerRow(&triggers[i])
			}

			out.Print(triggerHeaders, rows, triggers)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&triggerType, "type", "", "Filter by type (SCHEDULED/WEBHOOK/EVENT/MANUAL)")

	return cmd
}

func newTriggerCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID, name, description, triggerType, configJSON, inputsJSON string
	var enabled bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a trigger for a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var cfg map[string]any
			if configJSON != "" {
				if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
					return fmt.Errorf("invalid --config JSON: %w", err)
				}
			}

			inputs, err := parseInputs(inputsJSON)
			if err != nil {
				return err
			}

			trig, err := client.CreateTrigger(workflowID, CreateTriggerRequest{
				Name:          name,
				Description:   description,
				Type:          triggerType,
				Config:        cfg,
				DefaultInputs: inputs,
				Enabled:       enabled,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Trigger created: %s", trig.ID))
			if secret, ok := trig.Config["webhook_secret"].(string); ok && secret != "" {
				out.Success("Webhook secret (shown once): " + secret)
			}
			out.Print(triggerHeaders, [][]string{triggerRow(trig)}, trig)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow", "", "Workflow ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Trigger name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Trigger description")
	cmd.Flags().StringVar(&triggerType, "type", "", "Trigger type: SCHEDULED, WEBHOOK, EVENT or MANUAL (required)")
	cmd.Flags().StringVar(&configJSON, "config", "", `Trigger config as JSON (e.g. '{"cron_expression":"0 6 * * 1"}')`)
	cmd.Flags().StringVar(&inputsJSON, "inputs", "", "Default inputs as JSON")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Create trigger enabled")
	cmd.MarkFlagRequired("workflow")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newTriggerShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show trigger details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			trig, err := client.GetTrigger(args[0])
			if err != nil {
				return err
			}

			out.Print(triggerHeaders, [][]string{triggerRow(trig)}, trig)
			return nil
		},
	}
}

func newTriggerDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteTrigger(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Trigger deleted: %s", args[0]))
			return nil
		},
	}
}

func newTriggerEnableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			trig, err := client.EnableTrigger(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Trigger enabled: %s", trig.ID))
			return nil
		},
	}
}

func newTriggerDisableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			trig, err := client.DisableTrigger(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Trigger disabled: %s", trig.ID))
			return nil
		},
	}
}

func newTriggerFireCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var inputsJSON string
	var async bool

	cmd := &cobra.Command{
		Use:   "fire ID",
		Short: "Fire a trigger manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inputs, err := parseInputs(inputsJSON)
			if err != nil {
				return err
			}

			execution, err := client.FireTrigger(args[0], FireTriggerRequest{
				Inputs: inputs,
				Async:  async,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution %s: %s", execution.ID, execution.Status))
			out.Print(executionHeaders, [][]string{executionRow(execution)}, execution)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputsJSON, "inputs", "", "Input overrides as JSON")
	cmd.Flags().BoolVar(&async, "async", false, "Do not wait for completion")

	return cmd
}

func newTriggerRotateSecretCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-secret ID",
		Short: "Generate a new webhook secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			secret, err := client.RotateTriggerSecret(args[0])
			if err != nil {
				return err
			}

			out.Success("New webhook secret (shown once): " + secret.Secret)
			return nil
		},
	}
}

func newTriggerStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats ID",
		Short: "Show trigger execution statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.GetTriggerStats(args[0])
			if err != nil {
				return err
			}

			headers := []string{"FIRED", "LAST_RUN", "LAST_STATUS", "NEXT_RUN"}
			rows := [][]string{{
				strconv.Itoa(stats.ExecutionCount),
				stats.LastExecutedAt,
				stats.LastExecutionStatus,
				stats.NextExecutionAt,
			}}

			out.Print(headers, rows, stats)
			return nil
		},
	}
}
