// FilePath: cmd/main.go
package main

import (
	"fmt"
	"log"
	"os"

	tm "github.com/buger/goterm"
	"github.com/itsatony/soundscape/hub/internal/config"
	"github.com/itsatony/soundscape/hub/internal/server"
	nuts "github.com/vaudience/go-nuts"
)

// @title Soundscape Hub API
// @version 1.0
// @description Live soundscape dashboard: classifications, SPL, bat detections and device health.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting Soundscape Hub v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	nuts.L.Infof("[Main] Store backend: %s, log level: %s", cfg.Store.Backend, cfg.Monitoring.LogLevel)

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"   _____                       __                              ",
		"  / ___/____  __  ______  ____/ /_____________ _____  ___      ",
		"  \\__ \\/ __ \\/ / / / __ \\/ __  / ___/ ___/ __ `/ __ \\/ _ \\",
		" ___/ / /_/ / /_/ / / / / /_/ (__  ) /__/ /_/ / /_/ /  __/     ",
		"/____/\\____/\\__,_/_/ /_/\\__,_/____/\\___/\\__,_/ .___/\\___/",
		"                                            /_/                ",
		"..............................................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
