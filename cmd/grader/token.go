package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtal-search/grader/internal/config"
	"github.com/xtal-search/grader/internal/server"
)

var tokenCommand = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin API token",
	Long:  `Generates a JWT for the admin endpoints, signed with GRADER_JWT_SECRET.`,
	RunE:  runTokenCmd,
}

var tokenRole string

func init() {
	tokenCommand.Flags().StringVar(&tokenRole, "role", "admin", "Role claim to embed in the token")
	rootCmd.AddCommand(tokenCommand)
}

func runTokenCmd(_ *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenRole)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, token)
	return nil
}
