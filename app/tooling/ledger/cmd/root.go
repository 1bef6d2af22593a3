// Package cmd contains the ledger client app.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var url string

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node public api.")
}

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Client for a proof of work ledger node",
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func nodeURL(path string) string {
	return strings.TrimSuffix(url, "/") + path
}
