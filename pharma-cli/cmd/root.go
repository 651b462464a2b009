package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pharma-cli/api"
)

var rootCmd = &cobra.Command{
	Use:   "pharma",
	Short: "Pharma Supply Chain CLI",
	Long:  "A command-line tool for managing medicine batches and querying pharma supply-chain nodes.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&api.BaseURL, "node", "http://localhost:5000", "Node API base URL")
	rootCmd.PersistentFlags().StringVar(&api.APIKey, "api-key", os.Getenv("PHARMA_API_KEY"), "API key for operator endpoints")
}
