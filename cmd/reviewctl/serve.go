// cmd/reviewctl/serve.go
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/javajoker/verdict-cms/internal/app"
	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/database"
)

var seedAdmin bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		app.ConfigureLogging(cfg)

		db, err := app.OpenDatabase(cfg, seedAdmin)
		if err != nil {
			return err
		}
		database.Close(db)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if tablesPath != "" {
			cfg.Rules.TablesPath = tablesPath
		}
		log := app.ConfigureLogging(cfg)

		db, err := app.OpenDatabase(cfg, true)
		if err != nil {
			return err
		}
		defer database.Close(db)

		srv, err := app.NewServer(cfg, db, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seedAdmin, "seed", false, "Create the first admin account if none exists")
}
