package state

import "github.com/ardanlabs/ledger/foundation/blockchain/database"

// SubmitTransaction accepts a transaction for inclusion in the next block
// and returns the index of that block. No balance checks are performed.
func (s *State) SubmitTransaction(tx database.Tx) uint64 {
	index := s.db.NewTransaction(tx)

	s.evHandler("state: SubmitTransaction: tx[%s]: blk[%d]", tx, index)

	if s.autoMine {
		s.SignalMining()
	}

	return index
}
