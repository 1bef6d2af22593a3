package state

import (
	"context"
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// MineNewBlock solves the puzzle against the latest block and seals a new
// block holding the mining reward followed by the pending transactions. No
// lock is held while solving. If the chain changes before the block can be
// sealed, the work is stale and the puzzle is solved again against the new
// latest block. The search can be cancelled through the context.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	for {
		tip, err := s.db.LatestBlock()
		if err != nil {
			return database.Block{}, err
		}

		s.evHandler("state: MineNewBlock: MINING: perform POW: blk[%d]", tip.Index+1)

		proof, err := pow.Solve(ctx, tip.Proof, s.evHandler)
		if err != nil {
			return database.Block{}, err
		}

		reward := database.NewTx(s.genesis.RewardSender, s.nodeID, s.genesis.MiningReward)

		block, err := s.db.SealOnTip(tip.Hash(), proof, reward)
		if err != nil {
			if errors.Is(err, database.ErrTipChanged) {
				s.evHandler("state: MineNewBlock: MINING: WARNING: %s: solving again", err)
				continue
			}
			return database.Block{}, err
		}

		s.evHandler("state: MineNewBlock: MINING: SEALED: blk[%d]: txs[%d]: hash[%s]", block.Index, len(block.Transactions), block.Hash())

		return block, nil
	}
}
