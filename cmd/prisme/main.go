package main

import (
	"os"

	"github.com/wonny/prisme/backend/cmd/prisme/commands"
)

// main is the entry point for the Prisme ETL CLI
// ⭐ Unified CLI entry point: go run ./cmd/prisme [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
