package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"serialplotter/acquisition"
	"serialplotter/config"
	"serialplotter/logging"
	"serialplotter/monitoring"
	"serialplotter/notify"
	"serialplotter/serial"
	"serialplotter/service"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	device := flag.String("device", "", "Serial device to acquire from (overrides config)")
	baud := flag.Int("baud", 0, "Baud rate (overrides config)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	listPorts := flag.Bool("list-ports", false, "List available serial ports and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Display version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "SerialPlotter - serial data acquisition service\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -config config.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -device /dev/ttyUSB0 -baud 9600\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list-ports\n", os.Args[0])
	}

	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("SerialPlotter version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// Handle list-ports flag
	if *listPorts {
		ports, err := serial.ListDetailed()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Available serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none found)")
		}
		for _, port := range ports {
			if port.IsUSB {
				fmt.Printf("  %-20s USB %s:%s %s\n", port.Name, port.VID, port.PID, port.Product)
			} else {
				fmt.Printf("  %s\n", port.Name)
			}
		}
		os.Exit(0)
	}

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.BaudRate = *baud
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n  %v\n", err)
		os.Exit(1)
	}

	// Handle validate flag
	if *validate {
		fmt.Println("Configuration is valid")
		fmt.Printf("  Instance: %s\n", cfg.App.InstanceID)
		fmt.Printf("  Target: %s\n", acquisition.TargetFromConfig(cfg).Label())
		fmt.Printf("  Window: %gs (range %g-%gs)\n", cfg.Window.LengthSec, cfg.Window.MinLengthSec, cfg.Window.MaxLengthSec)
		fmt.Printf("  Monitoring port: %d\n", cfg.Monitoring.Port)
		os.Exit(0)
	}

	// Setup logging
	logger := logging.New(cfg.Logging, *debug, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("SerialPlotter starting",
		"version", version,
		"instance", cfg.App.InstanceID,
		"device", cfg.Serial.Device,
		"baud_rate", cfg.Serial.BaudRate,
	)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("SerialPlotter failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger *slog.Logger) error {
	// Create context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create Slack notifier
	slackNotifier := notify.NewSlackNotifier(&cfg.Slack, cfg.App.InstanceID, logger)

	// Create session and its controlling manager
	sessionCfg, opener := acquisition.FromConfig(cfg)
	session := acquisition.NewSession(sessionCfg, opener, logger)
	store := monitoring.NewStore()
	target := acquisition.TargetFromConfig(cfg)
	manager := service.NewManager(
		session,
		target,
		service.OptionsFromConfig(cfg),
		store,
		slackNotifier,
		logger,
	)

	monitorServer := monitoring.NewServer(cfg, configPath, version, store, logger)

	// Send startup notification
	if err := slackNotifier.NotifyStartup(target, cfg.Recovery.AutoRestart); err != nil {
		logger.Warn("Failed to send startup notification", "error", err)
	}

	startTime := time.Now()
	logger.Info("SerialPlotter running",
		"poll_interval", cfg.Poll.GetInterval(),
		"monitoring_port", cfg.Monitoring.Port,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		return monitorServer.Run(gctx)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		logger.Info("Received shutdown signal")
	}

	// Graceful shutdown
	logger.Info("SerialPlotter shutting down")

	uptime := time.Since(startTime)
	totalSamples := manager.TotalSamples()
	summary := notify.Summary{
		Target:   target,
		Samples:  totalSamples,
		Restarts: manager.Restarts(),
		Uptime:   uptime,
	}
	if nerr := slackNotifier.NotifyShutdown(summary); nerr != nil {
		logger.Warn("Failed to send shutdown notification", "error", nerr)
	}

	logger.Info("SerialPlotter stopped",
		"uptime", uptime,
		"total_samples", totalSamples,
		"restarts", summary.Restarts,
	)
	return err
}
