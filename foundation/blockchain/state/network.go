package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

const baseURL = "http://%s/v1/node"

// defaultMaxResponse bounds how much of a peer response is read. It leaves
// room for a chain of roughly a hundred thousand blocks.
const defaultMaxResponse = 64 << 20

// Set of errors returned when talking to a peer.
var (
	ErrPeerUnreachable = errors.New("peer unreachable")
	ErrPeerResponse    = errors.New("peer returned an error")
	ErrPeerReport      = errors.New("peer reported inconsistent data")
)

// HTTPFetcher retrieves chains from peers over the private node API.
type HTTPFetcher struct {
	client      *http.Client
	maxResponse int64
}

// NewHTTPFetcher constructs a fetcher that uses the specified client. A peer
// response larger than maxResponse bytes is rejected. Zero or less uses the
// default limit.
func NewHTTPFetcher(client *http.Client, maxResponse int64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	if maxResponse <= 0 {
		maxResponse = defaultMaxResponse
	}

	return &HTTPFetcher{
		client:      client,
		maxResponse: maxResponse,
	}
}

// FetchChain asks the peer for its full chain and the length it reports.
func (f *HTTPFetcher) FetchChain(ctx context.Context, pr peer.Peer) (database.ChainData, error) {
	url := fmt.Sprintf("%s/chain", fmt.Sprintf(baseURL, pr.Host))

	var cd database.ChainData
	if err := send(ctx, f.client, f.maxResponse, http.MethodGet, url, nil, &cd); err != nil {
		return database.ChainData{}, err
	}

	return cd, nil
}

// =============================================================================

// NetRequestPeerStatus asks the peer for its status, which includes the
// peers it knows about.
func (s *State) NetRequestPeerStatus(ctx context.Context, pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr)

	ctx, cancel := context.WithTimeout(ctx, s.peerTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))

	var ps peer.PeerStatus
	if err := send(ctx, http.DefaultClient, defaultMaxResponse, http.MethodGet, url, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: length[%d]: peer-list[%s]", pr, ps.Length, ps.KnownPeers)

	return ps, nil
}

// NetSendNodeAvailableToPeers announces this node to every known peer so
// they can add it to their peer list.
func (s *State) NetSendNodeAvailableToPeers(ctx context.Context) {
	s.evHandler("state: NetSendNodeAvailableToPeers: started")
	defer s.evHandler("state: NetSendNodeAvailableToPeers: completed")

	host := peer.New(s.host)

	for _, pr := range s.RetrieveKnownPeers() {
		s.evHandler("state: NetSendNodeAvailableToPeers: send: host[%s] to peer[%s]", host, pr)

		reqCtx, cancel := context.WithTimeout(ctx, s.peerTimeout)
		url := fmt.Sprintf("%s/peers", fmt.Sprintf(baseURL, pr.Host))
		err := send(reqCtx, http.DefaultClient, defaultMaxResponse, http.MethodPost, url, host, nil)
		cancel()

		if err != nil {
			s.evHandler("state: NetSendNodeAvailableToPeers: WARNING: %s", err)
		}
	}
}

// =============================================================================

// send is a helper function to send an HTTP request to a node. No more than
// maxResponse bytes of the response are read.
func send(ctx context.Context, client *http.Client, maxResponse int64, method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}

	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPeerUnreachable, err)
	}
	defer resp.Body.Close()

	// One extra byte tells a response at the limit from one past it.
	body = io.LimitReader(resp.Body, maxResponse+1)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(io.LimitReader(body, 1024))
		if err != nil {
			return fmt.Errorf("%w: status[%d]: %s", ErrPeerResponse, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: status[%d]: %s", ErrPeerResponse, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if dataRecv != nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("%w: read: %s", ErrPeerResponse, err)
		}

		if int64(len(data)) > maxResponse {
			return fmt.Errorf("%w: response exceeds %d bytes", ErrPeerResponse, maxResponse)
		}

		if err := json.Unmarshal(data, dataRecv); err != nil {
			return fmt.Errorf("%w: decode: %s", ErrPeerResponse, err)
		}
	}

	return nil
}
