package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pharma-cli/api"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query node status and health",
	Example: `  pharma status
  pharma status --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		status, err := api.GetStatus()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if output == "json" {
			fmt.Println(status.ToJSON())
		} else {
			fmt.Printf("Node: %s %s\nStatus: %s\nUptime: %ds\nMedicines: %d\n",
				status.Version, status.APIVersion, status.Status, status.Uptime, status.TotalMedicines)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("output", "o", "plain", "Output format: plain|json")
}
