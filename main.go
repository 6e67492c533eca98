package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tournevent/labelbridge/internal/server"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "labelbridge",
	Short:   "Labelbridge - batched carrier label creation and cancellation",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <shipment-number>...",
	Short: "Cancel shipments of one store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCancel,
}

var cancelStoreID int

func init() {
	cancelCmd.Flags().IntVar(&cancelStoreID, "store", 0, "store id the shipments belong to")
	cancelCmd.MarkFlagRequired("store")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	reg := prometheus.NewRegistry()
	metrics := initMetrics(reg)

	app, err := initApp(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("Starting Labelbridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Int("stores", app.stores.Len()),
	)

	// Start HTTP server
	srv := server.New(server.Config{Port: cfg.Port, Gatherer: reg}, app.management, logger, metrics)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := initApp(cfg, logger, initMetrics(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer app.Close()

	reqs := make([]*shipment.CancellationRequest, 0, len(args))
	for _, number := range args {
		reqs = append(reqs, &shipment.CancellationRequest{StoreID: cancelStoreID, TrackNumber: number})
	}

	responses, err := app.management.CancelShipments(ctx, reqs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(responses)
}
