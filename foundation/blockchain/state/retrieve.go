package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveNodeID returns the identity that receives mining rewards.
func (s *State) RetrieveNodeID() string {
	return s.nodeID
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy of the current latest block.
func (s *State) RetrieveLatestBlock() (database.Block, error) {
	return s.db.LatestBlock()
}

// RetrieveChain returns a copy of the full chain.
func (s *State) RetrieveChain() []database.Block {
	return s.db.Copy()
}

// RetrievePending returns a copy of the transactions waiting for the
// next block.
func (s *State) RetrievePending() []database.Tx {
	return s.db.Pending()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status of this node as reported to peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	blocks := s.db.Copy()

	var hash string
	if len(blocks) > 0 {
		hash = blocks[len(blocks)-1].Hash()
	}

	return peer.PeerStatus{
		NodeID:          s.nodeID,
		LatestBlockHash: hash,
		Length:          len(blocks),
		KnownPeers:      s.RetrieveKnownPeers(),
	}
}

// QueryPendingLength returns the number of transactions waiting for the
// next block.
func (s *State) QueryPendingLength() int {
	return len(s.db.Pending())
}
