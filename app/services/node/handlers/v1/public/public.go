// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new transaction to the pending buffer and reports
// the index of the block that will hold it.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(ntx); err != nil {
		return err
	}

	tx := ntx.toTx()

	h.Log.Infow("add tran", "traceid", v.TraceID, "sender", tx.Sender, "recipient", tx.Recipient, "amount", tx.Amount)
	index := h.State.SubmitTransaction(tx)

	resp := submitted{
		Message: fmt.Sprintf("Transaction will be added to Block %d", index),
		Index:   index,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Pending returns the transactions waiting for the next block.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrievePending(), http.StatusOK)
}

// Mine solves the puzzle and seals a new block. The request waits for the
// block to be sealed.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineNewBlock(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errs.NewTrusted(errors.New("mining was cancelled"), http.StatusServiceUnavailable)
		}
		return err
	}

	resp := mined{
		Message:      "New Block Forged",
		Index:        block.Index,
		Transactions: block.Transactions,
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining asks the background worker to mine a block.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if !h.State.SignalMining() {
		return errs.NewTrusted(errors.New("background mining is not running"), http.StatusServiceUnavailable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// Chain returns the full chain held by this node.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, database.NewChainData(h.State.RetrieveChain()), http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// RegisterNodes adds peers to this node. If any address is invalid no
// peer is added.
func (h Handlers) RegisterNodes(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var rn RegisterNodes
	if err := web.Decode(r, &rn); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(rn); err != nil {
		return err
	}

	peers, err := h.State.RegisterPeers(rn.Nodes)
	if err != nil {
		if errors.Is(err, peer.ErrInvalidAddress) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return err
	}

	total := make([]string, len(peers))
	for i, pr := range peers {
		total[i] = pr.Host
	}

	resp := registered{
		Message:    "New nodes have been added",
		TotalNodes: total,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Resolve runs the consensus rule against the known peers.
func (h Handlers) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	res, err := h.State.Resolve(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toResolved(res), http.StatusOK)
}
