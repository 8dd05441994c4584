package cli

import (
	"fmt"

	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents on the hub",
	}

	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentCreateCmd())
	cmd.AddCommand(newAgentRemoveCmd())

	return cmd
}

func newAgentListCmd() *cobra.Command {
	var hubURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := apiBase(hubURL)
			if err != nil {
				return err
			}

			var agents []domain.Agent
			if err := apiRequest("GET", base+"/api/agents", nil, &agents); err != nil {
				return err
			}

			if len(agents) == 0 {
				fmt.Println("no agents registered")
				return nil
			}
			for _, a := range agents {
				fmt.Printf("%s  %-20s %-12s %-8s (%.1f, %.1f)\n",
					a.ID, a.Name, a.Kind, a.Status, a.Position.X, a.Position.Y)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	return cmd
}

func newAgentCreateCmd() *cobra.Command {
	var (
		hubURL    string
		agentType string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := apiBase(hubURL)
			if err != nil {
				return err
			}

			body := map[string]any{"name": args[0], "type": agentType}
			var a domain.Agent
			if err := apiRequest("POST", base+"/api/agents", body, &a); err != nil {
				return err
			}

			fmt.Printf("created agent %s (%s) at (%.1f, %.1f)\n", a.ID, a.Name, a.Position.X, a.Position.Y)
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	cmd.Flags().StringVar(&agentType, "type", "worker", "agent type (worker, coordinator, monitor, specialist)")
	return cmd
}

func newAgentRemoveCmd() *cobra.Command {
	var hubURL string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := apiBase(hubURL)
			if err != nil {
				return err
			}

			if err := apiRequest("DELETE", base+"/api/agents/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("removed agent %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	return cmd
}
