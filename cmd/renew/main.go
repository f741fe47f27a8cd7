package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/edupay/internal/pkg/bootstrap"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/env"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "renew",
		Short:        "Charge and extend due subscriptions",
		SilenceUsage: true,
	}
	root.AddCommand(newOnceCmd(), newScheduleCmd())
	return root
}

func setup() (*bootstrap.Services, error) {
	env.SetupEnvFile()
	return bootstrap.New(config.Load())
}

func newOnceCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single renewal pass and print the summary as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := setup()
			if err != nil {
				return err
			}
			defer services.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
			defer cancelTimeout()

			summary, err := services.Renewals.RunOnce(ctx)
			if summary != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(summary); encErr != nil {
					return encErr
				}
			}
			if err != nil {
				return fmt.Errorf("renewal pass: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "abort the pass after this long")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run renewal passes on RENEWAL_SCHEDULE until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := setup()
			if err != nil {
				return err
			}
			defer services.Close()

			if err := services.Renewals.Start(); err != nil {
				return err
			}
			log.Printf("Renewal scheduler running (%s)", services.Config.Renewal.Schedule)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()

			log.Println("Stopping renewal scheduler...")
			services.Renewals.Stop()
			return nil
		},
	}
}
