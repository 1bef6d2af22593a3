package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// NewTx is what a client submits to add a transaction. Amount is a pointer
// so a missing amount can be told apart from zero.
type NewTx struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    *uint64 `json:"amount" validate:"required"`
}

func (ntx NewTx) toTx() database.Tx {
	return database.NewTx(ntx.Sender, ntx.Recipient, *ntx.Amount)
}

// RegisterNodes is what a client submits to add peers to the node.
type RegisterNodes struct {
	Nodes []string `json:"nodes" validate:"required"`
}

type submitted struct {
	Message string `json:"message"`
	Index   uint64 `json:"index"`
}

type mined struct {
	Message      string        `json:"message"`
	Index        uint64        `json:"index"`
	Transactions []database.Tx `json:"transactions"`
	Proof        uint64        `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

type registered struct {
	Message    string   `json:"message"`
	TotalNodes []string `json:"total_nodes"`
}

type outcome struct {
	Peer   string `json:"peer"`
	Length int    `json:"length"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type resolved struct {
	Message  string           `json:"message"`
	Replaced bool             `json:"replaced"`
	Chain    []database.Block `json:"chain"`
	Peers    []outcome        `json:"peers"`
}

func toResolved(res state.Resolution) resolved {
	msg := "Our chain is authoritative"
	if res.Replaced {
		msg = "Our chain was replaced"
	}

	peers := make([]outcome, len(res.Outcomes))
	for i, po := range res.Outcomes {
		peers[i] = outcome{
			Peer:   po.Peer.Host,
			Length: po.Length,
			Status: po.Status,
			Error:  po.Error(),
		}
	}

	return resolved{
		Message:  msg,
		Replaced: res.Replaced,
		Chain:    res.Chain,
		Peers:    peers,
	}
}
