package cmd

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	sender    string
	recipient string
	amount    uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a transaction to the node",
	Run: func(cmd *cobra.Command, args []string) {
		tx := struct {
			Sender    string `json:"sender"`
			Recipient string `json:"recipient"`
			Amount    uint64 `json:"amount"`
		}{
			Sender:    sender,
			Recipient: recipient,
			Amount:    amount,
		}

		var resp map[string]any
		if err := send(http.MethodPost, nodeURL("/v1/transactions/new"), tx, &resp); err != nil {
			log.Fatal(err)
		}

		if err := printJSON(resp); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sender, "sender", "s", "", "Sender of the transaction.")
	sendCmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Recipient of the transaction.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("sender")
	sendCmd.MarkFlagRequired("recipient")
}
