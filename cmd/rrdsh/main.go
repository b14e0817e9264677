// rrdsh pushes values into round-robin stores and inspects them.
//
// With a terminal on stdin it starts an interactive shell. Otherwise it reads
// one value per line, either "value" for the -series series or
// "series value", and prints every series' sample axis when input ends.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/xtxerr/roundrobin/internal/logging"
	"github.com/xtxerr/roundrobin/internal/storage/config"
	"github.com/xtxerr/roundrobin/internal/storage/series"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "", "config file path (built-in defaults when empty)")
	seriesName := flag.String("series", "default", "series for values without a series name")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	jsonLogs := flag.Bool("json", false, "JSON log output")
	flag.Parse()

	if err := run(*cfgPath, *seriesName, *logLevel, *jsonLogs); err != nil {
		logging.Error("rrdsh failed", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath, seriesName, logLevel string, jsonLogs bool) error {
	cfg := config.DefaultConfig()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// CLI overrides
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if jsonLogs {
		cfg.Logging.JSON = true
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return err
	}
	logging.Init(os.Stderr, level, cfg.Logging.JSON)

	reg, err := series.NewRegistry(cfg)
	if err != nil {
		return err
	}

	sh := newShell(reg, seriesName, os.Stdout)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		logging.Debug("starting shell", "version", Version, "series", seriesName)
		sh.interactive()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sh.ingest(ctx, os.Stdin); err != nil {
		return err
	}
	return sh.printAll()
}
