// Command wesoforge computes Wesolowski proofs for the class group VDF.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/hoffmang9/WesoForge/log"
	"github.com/hoffmang9/WesoForge/metrics"
)

var (
	version = "v0.1.0"
	commit  = "unknown"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:    "verbosity",
		Usage:   "Log level 0-5 (0=silent, 5=trace)",
		Value:   3,
		EnvVars: []string{"WESOFORGE_VERBOSITY"},
	}
	metricsFlag = &cli.BoolFlag{
		Name:    "metrics",
		Usage:   "Serve Prometheus metrics while running",
		EnvVars: []string{"WESOFORGE_METRICS"},
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:    "metrics.addr",
		Usage:   "Listen address for the metrics endpoint",
		Value:   "127.0.0.1:6060",
		EnvVars: []string{"WESOFORGE_METRICS_ADDR"},
	}
)

func main() {
	os.Exit(run(os.Args, os.Stdout))
}

func run(args []string, out io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(out).RunContext(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(out io.Writer) *cli.App {
	var server *http.Server
	return &cli.App{
		Name:    "wesoforge",
		Usage:   "class group VDF prover",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		Writer:  out,
		Flags:   []cli.Flag{verbosityFlag, metricsFlag, metricsAddrFlag},
		Before: func(c *cli.Context) error {
			setupLogging(c.Int(verbosityFlag.Name))
			if c.Bool(metricsFlag.Name) {
				server = startMetrics(c.String(metricsAddrFlag.Name))
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if server == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
		Commands: []*cli.Command{proveCommand, paramsCommand, benchCommand},
	}
}

// setupLogging installs go-ethereum's terminal handler for both loggers.
func setupLogging(verbosity int) {
	lvl := log.VerbosityToLevel(verbosity)
	if verbosity >= 5 {
		lvl = gethlog.LevelTrace
	}
	handler := gethlog.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)
	gethlog.SetDefault(gethlog.NewLogger(handler))
	log.SetDefault(log.NewWithHandler(handler))
}

func startMetrics(addr string) *http.Server {
	exporter := metrics.NewPrometheusExporter(metrics.DefaultRegistry, metrics.DefaultPrometheusConfig())
	server := &http.Server{Addr: addr, Handler: exporter.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return server
}
