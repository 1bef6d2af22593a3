// This program provides a command line client for the ledger node.
package main

import "github.com/ardanlabs/ledger/app/tooling/ledger/cmd"

func main() {
	cmd.Execute()
}
