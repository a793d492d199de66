// Package main provides the tapegrad CLI: it records small graphs on a
// tape, runs the backward pass and checks the gradients numerically.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/born-ml/tapegrad/backend/cpu"
)

const version = "v0.1.0"

var (
	scenarioName = flag.String("scenario", "chain", "Scenario to run ("+strings.Join(scenarioNames, ", ")+")")
	dtype        = flag.String("dtype", "float64", "Element type (float32, float64)")
	seed         = flag.Int64("seed", 1, "Seed for parameter initialization")
	steps        = flag.Int("steps", 200, "Optimizer steps for the train scenario")
	check        = flag.Bool("check", true, "Compare gradients against central finite differences")
	dumpPath     = flag.String("dump", "", "Write the CBOR tape dump to this file")
	logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	enableOTel   = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
	metricsAddr  = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	noParallel   = flag.Bool("sequential", false, "Disable parallel kernels")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	flag.Parse()

	if *showVersion {
		fmt.Printf("tapegrad %s\n", version)
		return 0
	}

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Error().Err(err).Str("level", *logLevel).Msg("Invalid log level")
		return 2
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()
	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize tracer")
			return 1
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Tracer shutdown failed")
			}
		}()
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	cfg := cpu.DefaultConfig()
	if *noParallel {
		cfg.Parallel.Enabled = false
	}
	backend := cpu.NewWithConfig(cfg)

	opts := runOptions{
		scenario: *scenarioName,
		seed:     *seed,
		steps:    *steps,
		check:    *check,
		dumpPath: *dumpPath,
	}

	switch *dtype {
	case "float32":
		err = run[float32](ctx, backend, opts)
	case "float64":
		err = run[float64](ctx, backend, opts)
	default:
		err = errors.Errorf("unsupported dtype %q", *dtype)
	}
	if err != nil {
		log.Error().Err(err).Str("scenario", opts.scenario).Msg("Scenario failed")
		return 1
	}

	if *metricsAddr != "" {
		log.Info().Str("addr", *metricsAddr).Msg("Scenario done, still serving metrics")
		select {}
	}
	return 0
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("tapegrad"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server stopped")
	}
}
