// Package main runs a demonstration HTTP server with the admission
// guard in front of each protected route.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"learn.admissionguard/api"
	"learn.admissionguard/internal/policy"
	"learn.admissionguard/metrics"
	"learn.admissionguard/middleware"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	port := flag.Int("p", 8080, "Port to run the HTTP server on")
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	logLevelStr := flag.String("log-level", "info", "Logging level (trace, debug, info, warn, error, fatal, panic)")
	flag.Parse()

	logLevel, err := zerolog.ParseLevel(*logLevelStr)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", *logLevelStr).Msg("Invalid log level provided")
	}
	zerolog.SetGlobalLevel(logLevel)

	log.Info().Str("config_path", *configPath).Msg("Starting admission guard")

	guardMetrics := metrics.New(nil)
	guard, err := api.NewFromConfigPath(*configPath, api.WithMetrics(guardMetrics))
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("Startup failed: Error initializing admission guard")
	}
	defer guard.Close()

	handle := func(class, route string) {
		rl := middleware.NewRateLimit(guard, class)
		http.HandleFunc(route, rl.Handle(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "%s ok\n", class)
		}))
	}

	handle(policy.PlanGeneration, "/plans/generate")
	handle(policy.PlanValidation, "/plans/validate")
	handle(policy.Deploy, "/deploy")
	handle(policy.WebhookIngest, "/webhooks/ingest")
	handle(policy.HealthCheck, "/healthz")

	http.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("address", addr).Msg("Starting HTTP server")
	log.Fatal().Err(http.ListenAndServe(addr, nil)).Str("address", addr).Msg("HTTP server stopped")
}
