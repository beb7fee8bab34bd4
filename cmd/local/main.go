package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boogy/jencoder/pkg/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settings for the local server
type ServerSettings struct {
	Port            int
	ConfigPath      string
	LogLevel        string
	SimulateLatency time.Duration
}

func main() {
	settings := parseCliFlags()

	bootstrap, err := handler.NewBootstrap(context.Background())
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	port := settings.Port
	if port == 0 {
		port = bootstrap.Config.Server.Port
	}

	api := handler.NewHTTPHandlerFromBootstrap(bootstrap)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Simulate network latency if configured
		if settings.SimulateLatency > 0 {
			time.Sleep(settings.SimulateLatency)
		}
		api.ServeHTTP(w, r)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Handle graceful shutdown
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		slog.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", port)
	slog.Info("Starting local development server",
		slog.Int("port", port),
		slog.String("store", bootstrap.Config.Store.Type),
		slog.String("generateEndpoint", base+handler.RouteGenerate),
		slog.String("decodeEndpoint", base+handler.RouteDecode),
		slog.String("metricsEndpoint", base+"/metrics"))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

func parseCliFlags() ServerSettings {
	settings := ServerSettings{}

	flag.IntVar(&settings.Port, "port", 0, "Port to listen on (default from config, 8080)")
	flag.StringVar(&settings.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&settings.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.DurationVar(&settings.SimulateLatency, "latency", 0, "Simulate network latency (e.g., 100ms)")

	flag.Parse()

	// Flags are handed to the bootstrap through the environment it reads
	if settings.ConfigPath != "" {
		if err := os.Setenv("CONFIG_PATH", settings.ConfigPath); err != nil {
			slog.Error("Error setting CONFIG_PATH environment variable", "error", err)
		}
	}
	if settings.LogLevel != "" {
		for _, key := range []string{"LOG_LEVEL", "JENC_LOG_LEVEL"} {
			if err := os.Setenv(key, settings.LogLevel); err != nil {
				slog.Error("Error setting log level environment variable", "error", err)
			}
		}
	}

	return settings
}
