package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pharma-cli/api"
)

var transferCmd = &cobra.Command{
	Use:   "transfer <batch_no> <to_owner> <scratch_card_no>",
	Short: "Transfer custody of a batch (ship + receive on the ledger)",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := api.TransferMedicine(args[0], args[1], args[2])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !result.Success {
			color.Red("Transfer failed: %s", result.Error)
			os.Exit(1)
		}
		color.Green("Ownership transferred: %s -> %s", result.From, result.To)
		fmt.Println("Ship tx:   ", result.TxShip)
		fmt.Println("Receive tx:", result.TxReceive)
	},
}

var soldCmd = &cobra.Command{
	Use:   "sold <batch_no> <scratch_card_no>",
	Short: "Mark a batch sold (terminal transition)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := api.MarkSold(args[0], args[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !result.Success {
			color.Red("Mark sold failed: %s", result.Error)
			os.Exit(1)
		}
		color.Green("Batch %s marked sold", result.BatchNo)
		fmt.Println("Sold tx:", result.TxSold)
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(soldCmd)
}
