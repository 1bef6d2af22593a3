package cmd

import (
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine a block and wait for it",
	Run: func(cmd *cobra.Command, args []string) {
		var resp map[string]any
		if err := send(http.MethodGet, nodeURL("/v1/mine"), nil, &resp); err != nil {
			log.Fatal(err)
		}

		if err := printJSON(resp); err != nil {
			log.Fatal(err)
		}
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the chain held by the node",
	Run: func(cmd *cobra.Command, args []string) {
		var cd database.ChainData
		if err := send(http.MethodGet, nodeURL("/v1/chain"), nil, &cd); err != nil {
			log.Fatal(err)
		}

		if err := printJSON(cd); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(chainCmd)
}
