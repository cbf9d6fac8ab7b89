// Package main provides the resume_fetcher CLI, which downloads applicant resumes
// linked from job board notification emails.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resume_fetcher",
	Short: "Download applicant resumes linked from notification emails",
	Long: `resume_fetcher finds the resume-view link in a job board notification email, opens it in a
headless browser with a randomized fingerprint, and saves the resume PDF.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config
file values, and environment variables (or a .env file) fill in anything left unset.`,
	SilenceUsage: true,
}

var (
	rootConfigPath string
	rootVerbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
