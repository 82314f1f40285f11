package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage workflow executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
		newExecutionLogsCmd(clientFn, outputFn),
	)

	return cmd
}

var executionHeaders = []string{"ID", "WORKFLOW", "VERSION", "STATUS", "TRIGGERED_BY", "CREATED"}

func executionRow(e *ExecutionResponse) []string {
	return []string{e.ID, e.WorkflowID, e.Version, e.Status, e.TriggeredBy, e.CreatedAt}
}

func logField(entry map[string]any, key string) string {
	v, ok := entry[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// parseInputs разбирает JSON строку с входными параметрами.
func parseInputs(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var inputs map[string]any
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, fmt.Errorf("invalid --inputs JSON: %w", err)
	}
	return inputs, nil
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflowID, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				WorkflowID: workflowID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(executions))
			for i := range executions {
				rows[i] = executionRow(&executions[i])
			}

			out.Print(executionHeaders, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowID, "workflow", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max executions to return")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version, inputsJSON, user string
	var async bool

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a workflow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inputs, err := parseInputs(inputsJSON)
			if err != nil {
				return err
			}

			execution, err := client.StartExecution(args[0], StartExecutionRequest{
				Version: version,
				Inputs:  inputs,
				Async:   async,
				User:    user,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution %s: %s", execution.ID, execution.Status))
			out.Print(executionHeaders, [][]string{executionRow(execution)}, execution)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Workflow version (default: current)")
	cmd.Flags().StringVar(&inputsJSON, "inputs", "", `Execution inputs as JSON (e.g. '{"scene_id":"S2A_123"}')`)
	cmd.Flags().StringVar(&user, "user", "", "User name for triggered_by")
	cmd.Flags().BoolVar(&async, "async", false, "Do not wait for completion")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execution, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Detail([][2]string{
				{"ID", execution.ID},
				{"Workflow", execution.WorkflowID},
				{"Version", execution.Version},
				{"Status", execution.Status},
				{"Triggered by", execution.TriggeredBy},
				{"Created", execution.CreatedAt},
				{"Started", execution.StartedAt},
				{"Completed", execution.CompletedAt},
			}, execution)
			if execution.Error != "" {
				out.Error(execution.Error)
			}
			return nil
		},
	}
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CancelExecution(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution cancelled: %s", args[0]))
			return nil
		},
	}
}

func newExecutionLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logs ID",
		Short: "Show execution logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execution, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "NODE", "LEVEL", "MESSAGE"}
			rows := make([][]string, len(execution.Logs))
			for i, entry := range execution.Logs {
				rows[i] = []string{
					logField(entry, "timestamp"),
					logField(entry, "node_id"),
					logField(entry, "level"),
					logField(entry, "message"),
				}
			}

			out.Print(headers, rows, execution.Logs)
			return nil
		},
	}
}
