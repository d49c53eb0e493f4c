package main

import (
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"serialplotter/acquisition"
	"serialplotter/config"
	"serialplotter/gui/ui"
	"serialplotter/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n  %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, *debug, os.Stderr)

	sessionCfg, opener := acquisition.FromConfig(cfg)
	session := acquisition.NewSession(sessionCfg, opener, logger)

	// Create the app
	myApp := app.New()
	myWindow := myApp.NewWindow("Serial Data Plotter")
	myWindow.Resize(fyne.NewSize(1200, 800))

	// Create the main UI
	mainUI := ui.NewMainUI(myWindow, session, cfg, *configPath, logger)
	myWindow.SetOnClosed(mainUI.Close)

	// Set up the window content
	myWindow.SetContent(mainUI.Build())
	myWindow.ShowAndRun()
}
