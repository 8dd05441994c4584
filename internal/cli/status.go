package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/swarmdeck/internal/config"
	"github.com/soyeahso/swarmdeck/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var hubURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show swarmdeck status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Swarmdeck %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("Hub:      port=%d bind=%s ping=%ds\n",
				cfg.Hub.Port, cfg.Hub.Bind, cfg.Hub.PingIntervalSeconds)
			fmt.Printf("Canvas:   %gx%g threshold=%g policy=%s\n",
				cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.ProximityThreshold, cfg.Canvas.PositionPolicy)
			fmt.Printf("Registry: store=%s\n", cfg.Registry.Store)
			fmt.Printf("Client:   url=%s reconnect=%ds attempts=%d\n",
				cfg.Client.URL, cfg.Client.ReconnectDelaySeconds, cfg.Client.MaxReconnectAttempts)

			// Probe a running hub
			base, err := apiBase(hubURL)
			if err == nil {
				var health struct {
					Status   string `json:"status"`
					Version  string `json:"version"`
					Sessions int    `json:"sessions"`
					Agents   int    `json:"agents"`
				}
				if err := apiRequest("GET", base+"/health", nil, &health); err == nil {
					fmt.Printf("\nHub:      running (%s) sessions=%d agents=%d\n",
						health.Status, health.Sessions, health.Agents)
				} else {
					fmt.Println("\nHub:      not running")
				}
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub API base URL")
	return cmd
}
