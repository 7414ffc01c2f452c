// Package cmd implements the operator commands for signupctl.
package cmd

import (
	"github.com/go-wa-onboarding/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "signupctl",
	Short: "Operator tooling for WhatsApp embedded signup",
	Long: `signupctl inspects embedded signup state from the command line.

It reads the same environment (and .env file) as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}
