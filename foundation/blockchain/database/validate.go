package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// ErrInvalidChain is returned when a chain fails link or proof validation.
var ErrInvalidChain = errors.New("invalid chain")

// ValidateChain walks the chain from the first block forward and checks that
// every block links to the hash of its parent and carries a proof that solves
// the puzzle against the parent's proof. The first failure is returned.
// Empty and genesis only chains are valid.
func ValidateChain(blocks []Block, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	if len(blocks) < 2 {
		return nil
	}

	parent := blocks[0]
	for _, block := range blocks[1:] {
		evHandler("database: ValidateChain: validate: blk[%d]: check: parent hash does match parent block", block.Index)

		hash := parent.Hash()
		if block.PreviousHash != hash {
			return fmt.Errorf("%w: block %d: parent block hash doesn't match, got %s, exp %s", ErrInvalidChain, block.Index, block.PreviousHash, hash)
		}

		evHandler("database: ValidateChain: validate: blk[%d]: check: proof solves parent proof", block.Index)

		if !pow.ValidProof(parent.Proof, block.Proof) {
			return fmt.Errorf("%w: block %d: proof %d doesn't solve parent proof %d", ErrInvalidChain, block.Index, block.Proof, parent.Proof)
		}

		parent = block
	}

	return nil
}

// IsValid reports whether the chain passes ValidateChain.
func IsValid(blocks []Block) bool {
	return ValidateChain(blocks, nil) == nil
}
