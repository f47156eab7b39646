// Command hardstop is Hardstop's command-line interface.
//
// Commands:
//
//	run       Process every NEW raw item through the pipeline once
//	serve     Mount the read-only HTTP surface (brief, health, metrics)
//	doctor    Print the current run-status verdict and per-source health
//	brief     Print the current brief envelope as JSON
//	version   Print version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/WhatsYourWhy/hardstop/internal/hsapp"
	"github.com/WhatsYourWhy/hardstop/internal/httpapi"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		handleRun(os.Args[2:])
	case "serve":
		handleServe(os.Args[2:])
	case "doctor":
		handleDoctor(os.Args[2:])
	case "brief":
		handleBrief(os.Args[2:])
	case "version":
		fmt.Printf("hardstop v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Hardstop v" + version)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hardstop <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run       Process every NEW raw item through the pipeline once")
	fmt.Println("  serve     Mount the read-only HTTP surface (brief, health, metrics)")
	fmt.Println("  doctor    Print the current run-status verdict and per-source health")
	fmt.Println("  brief     Print the current brief envelope as JSON")
	fmt.Println("  version   Print version")
	fmt.Println("  help      Show this help")
	fmt.Println()
	fmt.Println("Options common to run/serve/doctor/brief:")
	fmt.Println("  --data-dir   Directory holding the append-only logs (empty means in-memory)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  hardstop run --data-dir ./data")
	fmt.Println("  hardstop serve --data-dir ./data --addr :8080")
	fmt.Println("  hardstop doctor --data-dir ./data")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  HARDSTOP_SOURCES_REGISTRY, HARDSTOP_SUPPRESSION_REGISTRY, HARDSTOP_NETWORK_SNAPSHOT")
	fmt.Println("  HARDSTOP_STRICT, HARDSTOP_NO_SUPPRESS, HARDSTOP_MAX_SHIPMENTS")
	fmt.Println("  HARDSTOP_CORRELATION_WINDOW_DAYS, HARDSTOP_HEALTH_WINDOW_RUNS, HARDSTOP_STALE_HOURS_THRESHOLD")
	fmt.Println("  HARDSTOP_BRIEF_TOP_CAP, HARDSTOP_EMIT_PRIORITY_MIRROR")
}

func newLogger() zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).With().Timestamp().Logger()
}

func openApp(dataDir string) *hsapp.App {
	app, err := hsapp.Open(hsapp.Options{DataDir: dataDir, Clock: clock.NewReal()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return app
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Directory holding the append-only logs")
	runGroupID := fs.String("run-group", "", "Run group id (defaults to a generated uuid)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger()
	app := openApp(*dataDir)

	runGroup := *runGroupID
	if runGroup == "" {
		runGroup = uuid.NewString()
	}

	result, code, messages, err := app.Run(context.Background(), runGroup)
	if err != nil {
		log.Error().Err(err).Str("run_group_id", runGroup).Msg("pipeline run failed")
		os.Exit(int(code))
	}

	log.Info().
		Str("run_group_id", runGroup).
		Int("exit_code", int(code)).
		Int("run_records", len(result.RunRecords)).
		Int("source_runs", len(result.SourceRuns)).
		Msg("run complete")

	for _, m := range messages {
		fmt.Println(m)
	}
	os.Exit(int(code))
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Directory holding the append-only logs")
	addr := fs.String("addr", ":8080", "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger()
	app := openApp(*dataDir)

	router := httpapi.NewRouter(app, app.Clock, log)
	router.Handle("/metrics", promhttp.HandlerFor(app.Metrics.Registerer(), promhttp.HandlerOpts{}))

	log.Info().Str("addr", *addr).Msg("serving")
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func handleDoctor(args []string) {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Directory holding the append-only logs")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	app := openApp(*dataDir)
	code, messages := app.RunStatus()

	fmt.Printf("exit_code: %d\n", int(code))
	for _, m := range messages {
		fmt.Println("- " + m)
	}

	fmt.Println()
	fmt.Println("source health:")
	for sourceID, status := range app.SourceHealth() {
		fmt.Printf("  %-24s score=%-3d state=%s\n", sourceID, status.Score, status.BudgetState)
	}

	os.Exit(int(code))
}

func handleBrief(args []string) {
	fs := flag.NewFlagSet("brief", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Directory holding the append-only logs")
	windowHours := fs.Int("window-hours", 24, "Brief window, in hours")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	app := openApp(*dataDir)
	envelope := app.Brief(time.Duration(*windowHours)*time.Hour, app.Clock.Now())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
