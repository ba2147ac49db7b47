/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/edita-ar/apiserver/internal/db"
	"github.com/edita-ar/apiserver/internal/mq"
	"github.com/edita-ar/apiserver/internal/services"
	"github.com/edita-ar/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// workerCmd consumes project events and records author activity.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes project events and updates author profiles",
	Long: `Subscribes to the project-published channel and records each project in
its author's activity feed. Requires MQ_BACKEND. Usage:

	edita worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.New(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("worker requires MQ_BACKEND to be set")
		}
		defer queue.Close()

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		recorder := services.NewActivityRecorder(store.NewUserRepository(dbConn, cfg.Database.QueryTimeout), logger)

		logger.Info("worker subscribed", "backend", cfg.MQ.Backend, "channel", cfg.MQ.ProjectsChannel)
		err = queue.Subscribe(ctx, cfg.MQ.ProjectsChannel, recorder.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", cfg.MQ.ProjectsChannel, err)
		}
		logger.Info("worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
