package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
		newWorkflowPublishCmd(clientFn, outputFn),
		newWorkflowArchiveCmd(clientFn, outputFn),
		newWorkflowVersionsCmd(clientFn, outputFn),
		newWorkflowPushCmd(clientFn, outputFn),
	)

	return cmd
}

func workflowRow(w *WorkflowResponse) []string {
	return []string{w.ID, w.Name, w.Status, w.CurrentVersion, w.CreatedAt}
}

var workflowHeaders = []string{"ID", "NAME", "STATUS", "VERSION", "CREATED"}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows(projectID, status)
			if err != nil {
				return err
			}

			rows := make([][]string, len(workflows))
			for i := range workflows {
				rows[i] = workflowRow(&workflows[i])
			}

			out.Print(workflowHeaders, rows, workflows)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Filter by project")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (DRAFT/PUBLISHED/ARCHIVED)")

	return cmd
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, description, projectID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := client.CreateWorkflow(CreateWorkflowRequest{
				Name:        name,
				Description: description,
				ProjectID:   projectID,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", workflow.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(workflow)}, workflow)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workflow name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Workflow description")
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(workflowHeaders, [][]string{workflowRow(workflow)}, workflow)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateWorkflowRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}

			workflow, err := client.UpdateWorkflow(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Workflow updated")
			out.Print(workflowHeaders, [][]string{workflowRow(workflow)}, workflow)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New workflow name")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "publish ID",
		Short: "Publish a workflow (DRAFT -> PUBLISHED)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := client.PublishWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow published: %s (%s)", workflow.ID, workflow.CurrentVersion))
			out.Print(workflowHeaders, [][]string{workflowRow(workflow)}, workflow)
			return nil
		},
	}
}

func newWorkflowArchiveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID",
		Short: "Archive a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := client.ArchiveWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow archived: %s", workflow.ID))
			return nil
		},
	}
}

func newWorkflowVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions WORKFLOW_ID",
		Short: "List workflow versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			versions, err := client.ListVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"WORKFLOW_ID", "VERSION", "NODES", "EDGES", "CREATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{
					v.WorkflowID,
					v.Version,
					fmt.Sprintf("%d", len(v.Nodes)),
					fmt.Sprintf("%d", len(v.Edges)),
					v.CreatedAt,
				}
			}

			out.Print(headers, rows, versions)
			return nil
		},
	}
}

// graphFile — формат файла с топологией для команды push.
type graphFile struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

func newWorkflowPushCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var graphPath, changelog string

	cmd := &cobra.Command{
		Use:   "push WORKFLOW_ID",
		Short: "Push a new workflow version from a graph JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(graphPath)
			if err != nil {
				return fmt.Errorf("failed to read graph file: %w", err)
			}

			var graph graphFile
			if err := json.Unmarshal(data, &graph); err != nil {
				return fmt.Errorf("graph file is not valid JSON: %w", err)
			}
			if len(graph.Nodes) == 0 {
				return fmt.Errorf("graph file has no nodes")
			}

			version, err := client.CreateVersion(args[0], CreateVersionRequest{
				Nodes:     graph.Nodes,
				Edges:     graph.Edges,
				Changelog: changelog,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Version %s pushed for workflow %s", version.Version, version.WorkflowID))
			return nil
		},
	}

	cmd.Flags().StringVar(&graphPath, "graph-file", "", "Path to graph JSON file with nodes and edges (required)")
	cmd.Flags().StringVar(&changelog, "changelog", "", "Version changelog")
	cmd.MarkFlagRequired("graph-file")

	return cmd
}
