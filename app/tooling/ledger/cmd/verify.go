package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Validate a chain saved from the chain command",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		length, err := verifyFile(args[0])
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("chain is valid: length[%d]\n", length)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verifyFile validates the chain stored in the file. Both the chain command
// output and a bare list of blocks are accepted.
func verifyFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var cd database.ChainData
	if err := json.Unmarshal(data, &cd); err != nil {
		if err := json.Unmarshal(data, &cd.Chain); err != nil {
			return 0, fmt.Errorf("unable to decode chain: %w", err)
		}
		cd.Length = len(cd.Chain)
	}

	if cd.Length != len(cd.Chain) {
		return 0, fmt.Errorf("reported length[%d] does not match chain[%d]", cd.Length, len(cd.Chain))
	}

	if err := database.ValidateChain(cd.Chain, nil); err != nil {
		return 0, err
	}

	return len(cd.Chain), nil
}
