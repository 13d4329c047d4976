// Package cmd implements the CLI entry points.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "evi",
	Short: "Evi - NHS navigation assistant",
	Long: `Evi helps people in London navigate NHS services: registering with
a GP, checking eligibility, finding nearby services, and a guided
symptom triage.

Running evi with no arguments starts an interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command. A .env file in the working directory is
// loaded first so GEMINI_API_KEY can live there during development.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.Execute()
}
