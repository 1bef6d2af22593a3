// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Chain returns the full chain and its length so a peer can run the
// consensus rule against it.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, database.NewChainData(h.State.RetrieveChain()), http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// SubmitPeer is called by a node so it can be added to the known peer list.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	pr, err = peer.Parse(pr.Host)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if !h.State.AddKnownPeer(pr) {
		h.Log.Infow("add peer", "traceid", v.TraceID, "host", pr.Host, "status", "already known")
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
