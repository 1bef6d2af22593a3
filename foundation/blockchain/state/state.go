// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// defaultPeerTimeout bounds a single peer request when no timeout
// is configured.
const defaultPeerTimeout = 5 * time.Second

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the blockchain.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and conflict resolution in the
// background.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalResolve()
}

// Fetcher interface represents the behavior required to retrieve the chain
// held by a peer.
type Fetcher interface {
	FetchChain(ctx context.Context, pr peer.Peer) (database.ChainData, error)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	NodeID      string
	Host        string
	Genesis     genesis.Genesis
	KnownPeers  *peer.PeerSet
	Fetcher     Fetcher
	PeerTimeout time.Duration
	AutoMine    bool
	EvHandler   EventHandler
}

// State manages the blockchain database.
type State struct {
	nodeID      string
	host        string
	peerTimeout time.Duration
	autoMine    bool
	evHandler   EventHandler

	genesis    genesis.Genesis
	knownPeers *peer.PeerSet
	fetcher    Fetcher
	db         *database.Database

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.NodeID == "" {
		return nil, errors.New("node id is required to receive mining rewards")
	}

	// Without genesis sentinels the chain starts from the default settings.
	// A configured date is kept so nodes can still share a genesis block.
	gen := cfg.Genesis
	if gen.PreviousHash == "" {
		date := gen.Date
		gen = genesis.Default()
		gen.Date = date
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	peerTimeout := cfg.PeerTimeout
	if peerTimeout <= 0 {
		peerTimeout = defaultPeerTimeout
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(&http.Client{}, 0)
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		nodeID:      cfg.NodeID,
		host:        cfg.Host,
		peerTimeout: peerTimeout,
		autoMine:    cfg.AutoMine,
		evHandler:   ev,

		genesis:    gen,
		knownPeers: knownPeers,
		fetcher:    fetcher,
		db:         database.New(gen),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// SignalMining asks the worker, if one is running, to mine a block in
// the background.
func (s *State) SignalMining() bool {
	if s.Worker == nil {
		return false
	}

	s.Worker.SignalStartMining()
	return true
}
