package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pharma-cli/api"
)

var (
	addName        string
	addMfr         string
	addMfgDate     int64
	addExpDate     int64
	addScratch     string
	addDistributor string
)

var addCmd = &cobra.Command{
	Use:   "add <batch_no>",
	Short: "Register a new medicine batch and anchor it on the ledger",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := map[string]interface{}{
			"batch_no":         args[0],
			"name":             addName,
			"manufacturer":     addMfr,
			"manufacture_date": addMfgDate,
			"expiry_date":      addExpDate,
			"scratch_card_no":  addScratch,
		}
		if addDistributor != "" {
			payload["distributor"] = addDistributor
		}
		result, err := api.AddMedicine(payload)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !result.Success {
			color.Red("Add failed: %s", result.Error)
			os.Exit(1)
		}
		color.Green("Batch %s registered", result.BatchNo)
		fmt.Println("Signature:", result.DigitalSignature)
		fmt.Println("Ledger tx:", result.BlockchainTx)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addName, "name", "", "Drug name (required)")
	addCmd.Flags().StringVar(&addMfr, "manufacturer", "", "Manufacturer identity (required)")
	addCmd.Flags().Int64Var(&addMfgDate, "mfg", 0, "Manufacture date, unix seconds (required)")
	addCmd.Flags().Int64Var(&addExpDate, "exp", 0, "Expiry date, unix seconds (required)")
	addCmd.Flags().StringVar(&addScratch, "scratch", "", "Scratch card code (required)")
	addCmd.Flags().StringVar(&addDistributor, "distributor", "", "Distributor ledger address")
	addCmd.MarkFlagRequired("name")
	addCmd.MarkFlagRequired("manufacturer")
	addCmd.MarkFlagRequired("mfg")
	addCmd.MarkFlagRequired("exp")
	addCmd.MarkFlagRequired("scratch")
}
