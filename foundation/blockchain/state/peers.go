package state

import "github.com/ardanlabs/ledger/foundation/blockchain/peer"

// RegisterPeers adds the specified addresses to the set of known peers. All
// addresses are parsed before any is added, so a bad address leaves the set
// unchanged. Known peers and this node's own host are ignored. The full list
// of known peers is returned.
func (s *State) RegisterPeers(addresses []string) ([]peer.Peer, error) {
	peers := make([]peer.Peer, 0, len(addresses))
	for _, address := range addresses {
		pr, err := peer.Parse(address)
		if err != nil {
			return nil, err
		}
		peers = append(peers, pr)
	}

	for _, pr := range peers {
		s.AddKnownPeer(pr)
	}

	return s.RetrieveKnownPeers(), nil
}

// AddKnownPeer provides the ability to add a new peer to
// the known peer list.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.host) {
		return false
	}

	if !s.knownPeers.Add(pr) {
		return false
	}

	s.evHandler("state: AddKnownPeer: adding peer-node %s", pr)

	return true
}

// RemoveKnownPeer provides the ability to remove a peer from
// the known peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}
