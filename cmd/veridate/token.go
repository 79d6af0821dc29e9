package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridate/veridate/internal/config"
	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/server"
	"github.com/veridate/veridate/internal/types"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for a user",
	Long:  `Sign a JWT for the given user ID with JWT_SECRET. Intended for local development and operations.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if !ids.Valid(args[0]) {
		return &types.ErrInvalidIdentifier{Field: "user id", Value: args[0]}
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(strings.ToLower(args[0]))
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
