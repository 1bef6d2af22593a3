package cmd

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [address...]",
	Short: "Register peer nodes with the node",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req := struct {
			Nodes []string `json:"nodes"`
		}{
			Nodes: args,
		}

		var resp map[string]any
		if err := send(http.MethodPost, nodeURL("/v1/nodes/register"), req, &resp); err != nil {
			log.Fatal(err)
		}

		if err := printJSON(resp); err != nil {
			log.Fatal(err)
		}
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Ask the node to resolve its chain against its peers",
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Message  string `json:"message"`
			Replaced bool   `json:"replaced"`
			Peers    []any  `json:"peers"`
		}
		if err := send(http.MethodGet, nodeURL("/v1/nodes/resolve"), nil, &resp); err != nil {
			log.Fatal(err)
		}

		if err := printJSON(resp); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(resolveCmd)
}
