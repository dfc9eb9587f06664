// Package main is the entry point for the bzstat CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/bzstat/cmd"
	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/joho/godotenv"
)

// main executes the root command and exits non-zero on failure.
func main() {
	// A local .env may carry BZSTAT_*, JIRA_URL or GITHUB_DOMAIN.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
