package cmd

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var keyFile string

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a key file that gives a node a stable identity",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.GenerateKey()
		if err != nil {
			log.Fatal(err)
		}

		if err := crypto.SaveECDSA(keyFile, privateKey); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("node id: %s\n", crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
	},
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
	genkeyCmd.Flags().StringVarP(&keyFile, "file", "f", "node.ecdsa", "Path of the key file to write.")
}
