package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/cardtable/holdem/internal/server"
)

// CLI mirrors the teacher's cmd/holdem-server/main.go flag struct (kong,
// config/addr/log-level/log-file overrides), trimmed of the legacy
// --tables/--bots/--seed flags this spec has no equivalent for (no bot
// pool; tables come entirely from the HCL config's "table" blocks).
var CLI struct {
	Config   string `short:"c" long:"config" default:"holdem-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	LogFile  string `short:"f" long:"log-file" help:"Log file path (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.LogFile != "" {
		cfg.Server.LogFile = CLI.LogFile
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := newLogger(cfg.Server.LogFile)
	setLogLevel(logger, cfg.Server.LogLevel)

	logger.Info("starting holdem server", "addr", cfg.Address(), "tables", len(cfg.Tables))

	srv := server.New(cfg.Tables[0].GameConfig(), logger)
	for _, tableCfg := range cfg.Tables {
		id := tableCfg.Name
		if err := srv.Registry().CreateNamedWithConfig("holdem", id, tableCfg.Name, tableCfg.GameConfig()); err != nil {
			logger.Error("failed to create table", "error", err, "table", tableCfg.Name)
			ctx.Exit(1)
		}
		logger.Info("created table",
			"id", id,
			"stakes", fmt.Sprintf("%d/%d", tableCfg.SmallBlind, tableCfg.BigBlind),
			"maxPlayers", tableCfg.MaxPlayers)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	if err := srv.Start(cfg.Address()); err != nil {
		logger.Error("server failed", "error", err)
		ctx.Exit(1)
	}
}

// newLogger builds the process-wide logger, grounded on the teacher's
// charmbracelet/log + muesli/termenv color-profile setup, simplified to a
// single destination (terminal or file) rather than the teacher's
// ANSI-stripping dual writer, since this spec has no requirement to mirror
// output to both at once.
func newLogger(logFile string) *log.Logger {
	if logFile == "" {
		logger := log.New(os.Stderr)
		logger.SetColorProfile(termenv.TrueColor)
		return logger
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		logger := log.New(os.Stderr)
		logger.SetColorProfile(termenv.TrueColor)
		return logger
	}
	logger := log.New(f)
	return logger
}

func setLogLevel(logger *log.Logger, level string) {
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}
