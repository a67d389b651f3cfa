// cmd/browser/main.go
package main

import (
	"flag"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shiftline/lineboard/internal/browser"
	"github.com/shiftline/lineboard/internal/logger"
	"github.com/shiftline/lineboard/internal/tui"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	apiURL := flag.String("api", envOr("LINEBOARD_API", "http://localhost:8080"), "base URL of the lineboard server")
	defaultTable := flag.String("table", envOr("DEFAULT_TABLE", ""), "table to select on startup")
	flag.Parse()

	client := browser.NewClient(*apiURL)
	indicators := browser.NewIndicatorSet(browser.DefaultIndicatorConfig(), browser.NewScheduler())
	defer indicators.Close()

	ctrl := browser.NewController(client, indicators, *defaultTable)

	program := tea.NewProgram(tui.New(ctrl), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		customLog.Fatalf("Browser exited with error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
