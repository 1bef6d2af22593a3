package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// Set of reasons recorded against a peer during resolution.
const (
	OutcomeUnreachable = "unreachable"
	OutcomePeerError   = "peer_error"
	OutcomeNotLonger   = "not_longer"
	OutcomeInvalid     = "invalid_chain"
	OutcomeCandidate   = "candidate"
	OutcomeAdopted     = "adopted"
)

// PeerOutcome records what happened with a single peer during resolution.
type PeerOutcome struct {
	Peer   peer.Peer `json:"peer"`
	Length int       `json:"length"`
	Status string    `json:"status"`
	Err    error     `json:"-"`
}

// Error returns the reason the peer was skipped, if any.
func (po PeerOutcome) Error() string {
	if po.Err == nil {
		return ""
	}
	return po.Err.Error()
}

// Resolution is the result of running the consensus rule.
type Resolution struct {
	Replaced bool
	Chain    []database.Block
	Outcomes []PeerOutcome
}

// Resolve applies the longest valid chain rule against every known peer. The
// chains are fetched concurrently, each request bounded by the peer timeout.
// The longest valid chain that is strictly longer than the local chain
// replaces it. When two peers offer the same length, the peer that comes
// first in the peer list wins.
func (s *State) Resolve(ctx context.Context) (Resolution, error) {
	s.evHandler("state: Resolve: started")
	defer s.evHandler("state: Resolve: completed")

	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	// The local length is captured once. ReplaceIfLonger checks it again at
	// swap time since the chain can grow while peers are being fetched.
	localLength := s.db.Length()

	peers := s.RetrieveKnownPeers()
	fetched := s.fetchChains(ctx, peers)

	outcomes := make([]PeerOutcome, len(peers))
	best := -1
	bestLength := localLength

	for i, f := range fetched {
		outcomes[i] = s.judge(f, localLength)
		if outcomes[i].Status != OutcomeCandidate {
			continue
		}

		if outcomes[i].Length > bestLength {
			best = i
			bestLength = outcomes[i].Length
		}
	}

	if best == -1 {
		s.evHandler("state: Resolve: chain is authoritative: length[%d]", localLength)
		return Resolution{Chain: s.db.Copy(), Outcomes: outcomes}, nil
	}

	if !s.db.ReplaceIfLonger(fetched[best].chain.Chain) {
		s.evHandler("state: Resolve: local chain grew during resolution: candidate[%s] dropped", peers[best])
		return Resolution{Chain: s.db.Copy(), Outcomes: outcomes}, nil
	}

	outcomes[best].Status = OutcomeAdopted

	s.evHandler("state: Resolve: chain replaced: peer[%s]: length[%d -> %d]", peers[best], localLength, bestLength)

	// Anything being mined is now against a stale block.
	if s.Worker != nil {
		s.Worker.SignalCancelMining()
	}

	return Resolution{Replaced: true, Chain: s.db.Copy(), Outcomes: outcomes}, nil
}

// =============================================================================

// fetchResult holds the response from a single peer.
type fetchResult struct {
	peer  peer.Peer
	chain database.ChainData
	err   error
}

// fetchChains requests the chain from every peer concurrently. Results are
// returned in the same order as the peers.
func (s *State) fetchChains(ctx context.Context, peers []peer.Peer) []fetchResult {
	results := make([]fetchResult, len(peers))

	var wg sync.WaitGroup
	wg.Add(len(peers))

	for i, pr := range peers {
		go func(i int, pr peer.Peer) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, s.peerTimeout)
			defer cancel()

			cd, err := s.fetcher.FetchChain(ctx, pr)
			results[i] = fetchResult{peer: pr, chain: cd, err: err}
		}(i, pr)
	}

	wg.Wait()

	return results
}

// judge decides if the chain a peer returned can be considered.
func (s *State) judge(f fetchResult, localLength int) PeerOutcome {
	po := PeerOutcome{
		Peer:   f.peer,
		Length: f.chain.Length,
	}

	switch {
	case f.err != nil:
		po.Status = OutcomePeerError
		if errors.Is(f.err, ErrPeerUnreachable) || errors.Is(f.err, context.DeadlineExceeded) {
			po.Status = OutcomeUnreachable
		}
		po.Err = f.err

	case f.chain.Length != len(f.chain.Chain):
		po.Status = OutcomePeerError
		po.Err = fmt.Errorf("%w: length[%d] chain[%d]", ErrPeerReport, f.chain.Length, len(f.chain.Chain))

	case f.chain.Length <= localLength:
		po.Status = OutcomeNotLonger

	default:
		if err := database.ValidateChain(f.chain.Chain, s.evHandler); err != nil {
			po.Status = OutcomeInvalid
			po.Err = err
			break
		}
		po.Status = OutcomeCandidate
	}

	if po.Err != nil {
		s.evHandler("state: Resolve: skip peer[%s]: %s: %s", f.peer, po.Status, po.Err)
	}

	return po
}
