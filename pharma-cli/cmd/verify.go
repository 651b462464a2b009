package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pharma-cli/api"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <batch_no> <scratch_card_no>",
	Short: "Verify a medicine batch against the node and the ledger",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := api.VerifyMedicine(args[0], args[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !result.Success {
			color.Red("Verification request failed: %s", result.Error)
			os.Exit(1)
		}

		printCheck("Local record", result.LocalExists)
		printCheck("Digital signature", result.SignatureValid)
		printCheck("Scratch card", result.ScratchCardMatch)
		if result.OnChainError != "" {
			color.Yellow("⚠ Ledger unavailable: %s", result.OnChainError)
		} else if len(result.OnChain) == 0 || string(result.OnChain) == "null" {
			color.Yellow("⚠ No ledger record for this batch")
		} else {
			color.Green("✔ Ledger record: %s", string(result.OnChain))
		}

		if result.LocalExists && result.SignatureValid && result.ScratchCardMatch {
			color.Green("\nBatch %s is GENUINE", result.BatchNo)
		} else {
			color.Red("\nBatch %s FAILED verification", result.BatchNo)
			os.Exit(1)
		}
	},
}

func printCheck(label string, ok bool) {
	if ok {
		color.Green("✔ %s", label)
	} else {
		color.Red("✘ %s", label)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
