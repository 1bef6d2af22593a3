// Package peer maintains the peer related information such as the set
// of known peers and their status.
package peer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ErrInvalidAddress is returned when a peer address has no host.
var ErrInvalidAddress = errors.New("invalid peer address")

// Peer represents information about a Node in the network.
type Peer struct {
	Host string `json:"host"`
}

// New constructs a new info value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Parse normalizes an address such as "http://192.168.0.5:5000/path" or
// "192.168.0.5:5000" into a peer identified by host:port.
func Parse(address string) (Peer, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Peer{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	if u.Hostname() == "" {
		return Peer{}, fmt.Errorf("%w: %q has no host", ErrInvalidAddress, address)
	}

	return New(u.Host), nil
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// String implements the fmt.Stringer interface.
func (p Peer) String() string {
	return p.Host
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	NodeID          string `json:"node_id"`
	LatestBlockHash string `json:"latest_block_hash"`
	Length          int    `json:"length"`
	KnownPeers      []Peer `json:"known_peers"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known
// peers. Peers are kept in the order they were first added.
type PeerSet struct {
	mu    sync.RWMutex
	set   map[Peer]struct{}
	order []Peer
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new node to the set. It reports false if the node was
// already known.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer]; exists {
		return false
	}

	ps.set[peer] = struct{}{}
	ps.order = append(ps.order, peer)

	return true
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer]; !exists {
		return
	}

	delete(ps.set, peer)
	for i, p := range ps.order {
		if p == peer {
			ps.order = append(ps.order[:i], ps.order[i+1:]...)
			break
		}
	}
}

// Copy returns a list of the known peers, leaving out the specified host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for _, peer := range ps.order {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	return peers
}
