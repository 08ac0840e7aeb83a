// Package main provides the entry point for the site search grader CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grader",
	Short: "Site search quality grader",
	Long:  "Grader probes an e-commerce storefront's search with generated test queries, scores eight quality dimensions and estimates the revenue left on the table.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
