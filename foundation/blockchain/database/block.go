package database

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Block represents a group of transactions sealed into the chain. Fields are
// declared in canonical encoding order so the JSON form written to peers is
// the same form that is hashed.
type Block struct {
	Index        uint64 `json:"index"`         // Position of the block in the chain, starting at 1.
	PreviousHash string `json:"previous_hash"` // Hash of the previous block, a sentinel for genesis.
	Proof        uint64 `json:"proof"`         // Solution to the puzzle against the previous block's proof.
	Timestamp    int64  `json:"timestamp"`     // Unix nanoseconds, never lower than the previous block.
	Transactions []Tx   `json:"transactions"`  // Transactions in the order they were sealed.
}

// NewGenesisBlock constructs the first block of a chain using the sentinel
// values from the genesis settings.
func NewGenesisBlock(gen genesis.Genesis) Block {
	return Block{
		Index:        1,
		PreviousHash: gen.PreviousHash,
		Proof:        gen.Proof,
		Timestamp:    gen.Timestamp(),
		Transactions: []Tx{},
	}
}

// Hash returns the unique hash for the Block. A block without transactions
// hashes the same whether its list is nil or empty, since both come off the
// wire depending on the sender.
func (b Block) Hash() string {
	if b.Transactions == nil {
		b.Transactions = []Tx{}
	}

	return signature.Hash(b)
}

// =============================================================================

// ChainData represents the chain as it is sent between nodes.
type ChainData struct {
	Chain  []Block `json:"chain"`
	Length int     `json:"length"`
}

// NewChainData constructs the value to send to a peer.
func NewChainData(blocks []Block) ChainData {
	return ChainData{
		Chain:  blocks,
		Length: len(blocks),
	}
}
