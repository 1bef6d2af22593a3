package database

import "fmt"

// Tx represents a transfer of value recorded on the chain. Fields are declared
// in canonical encoding order.
type Tx struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
}

// NewTx constructs a new transaction.
func NewTx(sender string, recipient string, amount uint64) Tx {
	return Tx{
		Amount:    amount,
		Recipient: recipient,
		Sender:    sender,
	}
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%d", tx.Sender, tx.Recipient, tx.Amount)
}
