package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pictor/internal/models"
	"github.com/MeKo-Tech/pictor/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the detection API",
	Long: `Start an HTTP server that provides REST and WebSocket endpoints for
part-based detection.

The server provides the following endpoints:
  POST /detect   - Run detection on an uploaded image
  GET  /health   - Health check endpoint
  GET  /model    - Describe the loaded part model
  GET  /metrics  - Prometheus metrics
  GET  /ws       - WebSocket streaming detection

Examples:
  pictor serve --model person.yaml
  pictor serve --model person.yaml --port 8080
  pictor serve --model person.yaml --host 0.0.0.0 --port 3000`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		maxUploadSize := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUploadSize, _ = cmd.Flags().GetInt("max-upload-size")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		modelPath := cfg.ModelPath
		if cmd.Flags().Changed("model") {
			modelPath, _ = cmd.Flags().GetString("model")
		}
		if modelPath == "" {
			return errors.New("no part model specified (use --model)")
		}
		modelsDir, _ := cmd.Flags().GetString("models-dir")
		if _, err := os.Stat(modelPath); os.IsNotExist(err) {
			modelPath = models.GetPartModelPath(modelsDir, modelPath)
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		serverConfig := server.Config{
			Host:           host,
			Port:           port,
			CORSOrigin:     corsOrigin,
			MaxUploadMB:    int64(maxUploadSize),
			TimeoutSec:     timeout,
			ModelPath:      modelPath,
			DetectorConfig: cfg.ToDetectorConfig(),
		}

		if enabled, _ := cmd.Flags().GetBool("rate-limit-enabled"); enabled {
			rpm, _ := cmd.Flags().GetInt("requests-per-minute")
			rph, _ := cmd.Flags().GetInt("requests-per-hour")
			rpd, _ := cmd.Flags().GetInt("max-requests-per-day")
			dpd, _ := cmd.Flags().GetInt64("max-data-per-day")
			serverConfig.RateLimit = &server.RateLimitConfig{
				RequestsPerMinute: rpm,
				RequestsPerHour:   rph,
				MaxRequestsPerDay: rpd,
				MaxDataPerDay:     dpd,
			}
		}

		detServer, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		mux := http.NewServeMux()
		detServer.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(timeout) * time.Second,
			WriteTimeout:      time.Duration(timeout) * time.Second,
		}

		go func() {
			slog.Info("Starting detection server", "host", host, "port", port, "model", modelPath)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().StringP("model", "m", "", "part model file (YAML)")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", 100*1024*1024, "maximum data processed per day per client (bytes)")
}
