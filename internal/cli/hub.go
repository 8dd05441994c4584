package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/soyeahso/swarmdeck/internal/canvas"
	"github.com/soyeahso/swarmdeck/internal/config"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/soyeahso/swarmdeck/internal/hub"
	"github.com/soyeahso/swarmdeck/internal/registry"
	"github.com/soyeahso/swarmdeck/internal/store"
	"github.com/spf13/cobra"
)

func newHubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Manage the swarmdeck hub server",
	}

	cmd.AddCommand(newHubRunCmd())
	return cmd
}

func newHubRunCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the hub server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Hub.Port = port
			}
			if bind != "" {
				cfg.Hub.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Registry backend (SQLite or in-memory)
			var backend registry.Backend
			if cfg.Registry.Store == "sqlite" {
				dbPath := filepath.Join(paths.Data, "swarmdeck.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				backend = store.NewSQLiteBackend(db)
				log.Info().Str("path", dbPath).Msg("using SQLite registry store")
			} else {
				backend = registry.NewMemoryBackend()
				log.Info().Msg("using in-memory registry store")
			}

			bounds := domain.Bounds{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height}
			reg := registry.New(backend, bounds, log)

			positions := canvas.NewPositionStore(canvas.Policy(cfg.Canvas.PositionPolicy))

			// Seed the position store from persisted agents so strict
			// policies accept their updates from the first message.
			agents, err := reg.Agents()
			if err != nil {
				return fmt.Errorf("listing agents: %w", err)
			}
			for _, a := range agents {
				positions.Register(a.ID, canvas.Entry{Position: a.Position, Status: a.Status})
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := hub.New(cfg, reg, positions, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override hub port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")

	return cmd
}
