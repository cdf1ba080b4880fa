/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/digital-blueprint/apiserver/config"
	"github.com/digital-blueprint/apiserver/internal/events"
	"github.com/digital-blueprint/apiserver/internal/mq"
	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/server"
	"github.com/spf13/cobra"
)

var workerFormat string

// workerCmd archives a report every time a section is completed.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Archive reports of completed sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(workerFormat)
		if err != nil {
			return err
		}

		cfg := config.LoadConfig()
		if err := checkWorkerConfig(cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		components, err := server.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer components.Close()

		log.Printf("worker consuming %s events on %s", events.SectionCompleted, cfg.MQ.Channel)
		err = events.Subscribe(ctx, components.Queue, cfg.MQ.Channel, events.SectionCompleted, func(ctx context.Context, e events.Event) error {
			archived, err := components.Reports.Archive(ctx, e.UserID, e.SectionID, format)
			if err != nil {
				return err
			}
			log.Printf("archived %s/%s (%d bytes)", archived.Bucket, archived.Key, archived.Size)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// checkWorkerConfig rejects setups in which no event could reach the worker
// or no archive could be written. The memory broker lives inside the server
// process, so a separate worker never sees its events.
func checkWorkerConfig(cfg config.Config) error {
	switch cfg.MQ.Backend {
	case "":
		return errors.New("worker requires MQ_BACKEND")
	case mq.BackendMemory:
		return fmt.Errorf("worker cannot use MQ_BACKEND=%s: the in-process broker is not shared with the server; use %s or %s",
			mq.BackendMemory, mq.BackendRabbitMQ, mq.BackendPubSub)
	}
	if cfg.Storage.Backend == "" {
		return errors.New("worker requires STORAGE_BACKEND")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringVarP(&workerFormat, "format", "f", "pdf", "archived report format: json, html or pdf")
}
