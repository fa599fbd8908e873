package main

import (
	"fmt"
	"github.com/maxaizer/jobscout/internal/server"
	"github.com/spf13/cobra"
	"os"
	"time"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development token for a user",
	Long:  "Sign a bearer token for the given user with the server's JWT secret. Intended for local development.",
	RunE:  runToken,
}

var (
	tokenUserID string
	tokenSecret string
	tokenTTL    time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id to put into the token (required)")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "JWT secret (defaults to JWT_SECRET env var)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	secret := tokenSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return fmt.Errorf("JWT secret is required (use --secret or set JWT_SECRET)")
	}

	signed, err := server.NewTokenService(secret, tokenTTL).GenerateToken(tokenUserID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}
