package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/soyeahso/swarmdeck/internal/client"
	"github.com/soyeahso/swarmdeck/internal/config"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/soyeahso/swarmdeck/internal/hub"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		hubURL  string
		agentID string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to a hub and print live events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			url := cfg.Client.URL
			if hubURL != "" {
				url = hubURL
			}

			opts := client.Options{
				URL:            url,
				AgentID:        agentID,
				Bounds:         domain.Bounds{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height},
				ReconnectDelay: time.Duration(cfg.Client.ReconnectDelaySeconds) * time.Second,
				MaxAttempts:    cfg.Client.MaxReconnectAttempts,
				OnSnapshot:     printSnapshot,
				OnEnvelope:     printEnvelope,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := client.New(opts, log)
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubURL, "hub", "", "hub WebSocket URL (default from config)")
	cmd.Flags().StringVar(&agentID, "agent", "", "identify as this agent id")

	return cmd
}

func printSnapshot(snap hub.SnapshotPayload) {
	fmt.Printf("snapshot: %d position(s), %d agent(s), %d resource(s)\n",
		len(snap.Positions), len(snap.Agents), len(snap.Resources))

	ids := make([]string, 0, len(snap.Positions))
	for id := range snap.Positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := snap.Positions[id]
		fmt.Printf("  %s  (%.1f, %.1f)  %s\n", id, e.Position.X, e.Position.Y, e.Status)
	}
}

func printEnvelope(env hub.Envelope) {
	switch {
	case env.IsCursor():
		evt, err := env.Cursor()
		if err != nil {
			return
		}
		fmt.Printf("%s  %s  (%.1f, %.1f)\n", env.Type, evt.AgentID, evt.Position.X, evt.Position.Y)
	default:
		fmt.Printf("%s  agent=%s payload=%s\n", env.Type, env.AgentID, string(env.Payload))
	}
}
