package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pharma-cli/api"
)

var auditCmd = &cobra.Command{
	Use:   "audit <batch_no>",
	Short: "Show the custody audit trail for a batch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		trail, err := api.GetAuditTrail(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !trail.Success {
			color.Red("Audit lookup failed: %s", trail.Error)
			os.Exit(1)
		}
		fmt.Printf("Audit trail for %s (%d events):\n", trail.BatchNo, len(trail.Trail))
		for _, entry := range trail.Trail {
			fmt.Println(" ", string(entry))
		}
		if len(trail.Partial) > 0 && string(trail.Partial) != "null" {
			color.Yellow("Pending partial transfer: %s", string(trail.Partial))
		}
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
