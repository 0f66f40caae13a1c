package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/aestimo/internal/app"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/server"
	"github.com/ternarybob/arbor"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("Aestimo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("aestimo.toml"); err == nil {
			configFiles = append(configFiles, "aestimo.toml")
		} else if _, err := os.Stat("deployments/local/aestimo.toml"); err == nil {
			// Fallback for users running from project root
			configFiles = append(configFiles, "deployments/local/aestimo.toml")
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env -> CLI)
	// Later config files override earlier ones
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	// 3. Initialize logger with final configuration
	logger = common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(common.LoadVersionFromFile())

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	// Initialize application
	application, err := app.New(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Create HTTP server
	srv := server.New(application)

	// Start server in goroutine
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
