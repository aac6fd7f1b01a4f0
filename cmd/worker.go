package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start standalone workers that attach to the shared realtime feed`,
}

var relayWorkerCmd = &cobra.Command{
	Use:   "relay",
	Short: "Tail the realtime relay",
	Long:  `Subscribe to the realtime relay and log every envelope published by the servers`,
	Run: func(cmd *cobra.Command, args []string) {
		startRelayWorker()
	},
}

var (
	redisAddr    string
	relayChannel string
	eventFilter  string
)

func startRelayWorker() {
	cfg := mustLoadConfig()
	lg := logger.LoggerWrapper()

	realtimeCfg := cfg.Realtime
	realtimeCfg.RedisAddr = getStringFlag(redisAddr, realtimeCfg.RedisAddr)
	realtimeCfg.Channel = getStringFlag(relayChannel, realtimeCfg.Channel)
	if realtimeCfg.RedisAddr == "" {
		fmt.Fprintln(os.Stderr, "A redis address is required to tail the relay (--redis-addr or realtime.redis_addr)")
		os.Exit(1)
	}

	relay := newRelay(realtimeCfg, lg)
	defer relay.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := relay.Subscribe(ctx)
	if err != nil {
		lg.Error("failed to subscribe to relay", "error", err)
		os.Exit(1)
	}

	lg.Info("relay worker is running. Press Ctrl+C to stop.", "channel", realtimeCfg.Channel, "filter", eventFilter)

	for env := range stream {
		if eventFilter != "" && env.Type != eventFilter {
			continue
		}
		lg.Info("relay envelope",
			"event_id", env.ID,
			"event_type", env.Type,
			"organization_id", env.OrganizationID,
			"user_id", env.UserID,
			"profile_id", env.ProfileID,
			"request", env.Request,
			"occurred_at", env.OccurredAt)
	}

	lg.Info("relay worker stopped")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	relayWorkerCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (overrides config)")
	relayWorkerCmd.Flags().StringVar(&relayChannel, "channel", "", "Relay channel (overrides config)")
	relayWorkerCmd.Flags().StringVar(&eventFilter, "type", "", "Only log envelopes of this event type")

	workerCmd.AddCommand(relayWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
