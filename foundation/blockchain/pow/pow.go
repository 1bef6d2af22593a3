// Package pow implements the proof of work puzzle that gates the creation
// of new blocks. Finding a proof is expensive, checking one is a single hash.
package pow

import (
	"context"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Difficulty is the number of leading hex zeros a solution's hash must have.
const Difficulty = 4

// ValidProof reports whether the hash of the decimal concatenation of
// lastProof and proof has Difficulty leading zeros.
func ValidProof(lastProof uint64, proof uint64) bool {
	guess := strconv.AppendUint(nil, lastProof, 10)
	guess = strconv.AppendUint(guess, proof, 10)

	return isHashSolved(Difficulty, signature.HashBytes(guess))
}

// Solve searches for the smallest proof, starting at zero, that solves the
// puzzle for lastProof. There is no upper bound on the search. The context is
// checked between attempts so a caller can stop a search that is no longer
// needed.
func Solve(ctx context.Context, lastProof uint64, ev func(v string, args ...any)) (uint64, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("pow: Solve: MINING: started: lastProof[%d]", lastProof)
	defer ev("pow: Solve: MINING: completed")

	var proof uint64
	for {
		if proof > 0 && proof%1_000_000 == 0 {
			ev("pow: Solve: MINING: attempts[%d]", proof)
		}

		if ctx.Err() != nil {
			ev("pow: Solve: MINING: CANCELLED: attempts[%d]", proof)
			return 0, ctx.Err()
		}

		if ValidProof(lastProof, proof) {
			ev("pow: Solve: MINING: SOLVED: lastProof[%d]: proof[%d]", lastProof, proof)
			return proof, nil
		}

		proof++
	}
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty int, hash string) bool {
	const match = "0000000000000000"

	if len(hash) != 64 {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
