// Package main provides a command line client that triggers scrapes and follows them to completion.
package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"os"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:   "scrapectl",
	Short: "jobscout command line client",
	Long:  "scrapectl triggers job scrapes on a jobscout server, polls their status and prints the collected postings.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "jobscout server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (defaults to JOBSCOUT_TOKEN env var)")
}

func resolveToken() (string, error) {
	if token != "" {
		return token, nil
	}
	if env := os.Getenv("JOBSCOUT_TOKEN"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("token is required (use --token or set JOBSCOUT_TOKEN)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
