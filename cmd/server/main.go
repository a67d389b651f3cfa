// cmd/server/main.go
package main

import (
	"os"

	"github.com/shiftline/lineboard/api"
	"github.com/shiftline/lineboard/config"
	"github.com/shiftline/lineboard/internal/logger"
	"github.com/shiftline/lineboard/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting lineboard server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Initialize the shared connection pool
	db, err := storage.Connect(cfg)
	if err != nil {
		customLog.Fatalf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing database connection...")
		if err := db.Close(); err != nil {
			customLog.Printf("Error closing database: %v", err)
		}
	}()

	// 3. Setup Router (passing dependencies)
	router := api.SetupRouter(db, cfg)

	// 4. Start Server
	customLog.Printf("Server listening on %s", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
