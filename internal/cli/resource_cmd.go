package cli

import (
	"fmt"

	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/spf13/cobra"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Manage resources on the hub",
	}

	cmd.AddCommand(newResourceListCmd())
	cmd.AddCommand(newResourceCreateCmd())
	cmd.AddCommand(newResourceRemoveCmd())

	return cmd
}

func newResourceListCmd() *cobra.Command {
	var hubURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := apiBase(hubURL)
			if err != nil {
				return err
			}

			var resources []domain.Resource
			if err := apiRequest("GET", base+"/api/resources", nil, &resources); err != nil {
				return err
			}

			if len(resources) == 0 {
				fmt.Println("no resources registered")
				return nil
			}
			for _, r := range resources {
				util := "n/a"
				if u, ok := r.Utilization(); ok {
					util = fmt.Sprintf("%.0f%%", u*100)
				}
				fmt.Printf("%s  %-20s %-10s %-10s load=%.1f/%.1f (%s)\n",
					r.ID, r.Name, r.Kind, r.Status, r.Load, r.Capacity, util)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	return cmd
}

func newResourceCreateCmd() *cobra.Command {
	var (
		hubURL       string
		resourceType string
		capacity     float64
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := apiBase(hubURL)
			if err != nil {
				return err
			}

			body := map[string]any{"name": args[0], "type": resourceType, "capacity": capacity}
			var r domain.Resource
			if err := apiRequest("POST", base+"/api/resources", body, &r); err != nil {
				return err
			}

			fmt.Printf("created resource %s (%s) capacity=%.1f\n", r.ID, r.Name, r.Capacity)
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	cmd.Flags().StringVar(&resourceType, "type", "compute", "resource type (compute, storage, network, database)")
	cmd.Flags().Float64Var(&capacity, "capacity", 100, "resource capacity")
	return cmd
}

func newResourceRemoveCmd() *cobra.Command {
	var hubURL string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := apiBase(hubURL)
			if err != nil {
				return err
			}

			if err := apiRequest("DELETE", base+"/api/resources/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("removed resource %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	return cmd
}
