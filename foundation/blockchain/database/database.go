// Package database maintains the chain of blocks in memory along with the
// transactions waiting to be sealed into the next block.
package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/jinzhu/copier"
)

// Set of errors returned by the database.
var (
	ErrEmptyChain = errors.New("chain has no blocks")
	ErrTipChanged = errors.New("latest block changed before the block could be sealed")
)

// Database manages the chain and the pending transaction buffer. All access
// is serialized through the mutex so a block is always sealed against the
// buffer as it exists at seal time.
type Database struct {
	mu sync.RWMutex

	genesis genesis.Genesis
	blocks  []Block
	pending []Tx
}

// New constructs a database holding only the genesis block.
func New(gen genesis.Genesis) *Database {
	return &Database{
		genesis: gen,
		blocks:  []Block{NewGenesisBlock(gen)},
	}
}

// Genesis returns the genesis settings the chain was built with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// NewTransaction adds a transaction to the pending buffer and returns the
// index of the block that will hold it once the next block is sealed.
func (db *Database) NewTransaction(tx Tx) uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.pending = append(db.pending, tx)

	return uint64(len(db.blocks)) + 1
}

// SealBlock appends a new block holding the pending transactions and clears
// the buffer. When previousHash is empty the hash of the latest block is used.
func (db *Database) SealBlock(proof uint64, previousHash string) (Block, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.seal(proof, previousHash, nil)
}

// SealOnTip seals a block for a proof found against the block with the
// specified hash. The reward transaction is placed first, followed by the
// pending transactions. If the latest block is no longer tipHash the proof is
// stale and ErrTipChanged is returned without changing anything.
func (db *Database) SealOnTip(tipHash string, proof uint64, reward Tx) (Block, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.blocks) == 0 {
		return Block{}, ErrEmptyChain
	}

	if hash := db.blocks[len(db.blocks)-1].Hash(); hash != tipHash {
		return Block{}, fmt.Errorf("%w: got %s, exp %s", ErrTipChanged, hash, tipHash)
	}

	return db.seal(proof, tipHash, []Tx{reward})
}

// LatestBlock returns the most recently sealed block.
func (db *Database) LatestBlock() (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}, ErrEmptyChain
	}

	return db.blocks[len(db.blocks)-1], nil
}

// Length returns the number of blocks in the chain.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// Copy returns a deep copy of the chain so callers can't change the
// blocks held by the database.
func (db *Database) Copy() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return copyBlocks(db.blocks)
}

// Pending returns a copy of the transactions waiting for the next block.
func (db *Database) Pending() []Tx {
	db.mu.RLock()
	defer db.mu.RUnlock()

	pending := make([]Tx, len(db.pending))
	copy(pending, db.pending)

	return pending
}

// ReplaceIfLonger swaps the chain for the specified blocks in a single step,
// but only if they are still longer than the current chain. The pending buffer
// is left as is.
func (db *Database) ReplaceIfLonger(blocks []Block) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(blocks) <= len(db.blocks) {
		return false
	}

	db.blocks = copyBlocks(blocks)

	return true
}

// =============================================================================

// seal performs the block construction. The caller must hold the write lock.
func (db *Database) seal(proof uint64, previousHash string, lead []Tx) (Block, error) {
	var latest Block
	if len(db.blocks) > 0 {
		latest = db.blocks[len(db.blocks)-1]
	}

	if previousHash == "" {
		if len(db.blocks) == 0 {
			return Block{}, ErrEmptyChain
		}
		previousHash = latest.Hash()
	}

	// The pending buffer moves into the block and a new buffer is started.
	trans := db.pending
	if len(lead) > 0 {
		trans = append(append(make([]Tx, 0, len(lead)+len(db.pending)), lead...), db.pending...)
	}
	if trans == nil {
		trans = []Tx{}
	}
	db.pending = nil

	// Wall clocks can step backwards, the chain can't.
	timestamp := time.Now().UTC().UnixNano()
	if timestamp < latest.Timestamp {
		timestamp = latest.Timestamp
	}

	block := Block{
		Index:        uint64(len(db.blocks)) + 1,
		PreviousHash: previousHash,
		Proof:        proof,
		Timestamp:    timestamp,
		Transactions: trans,
	}

	db.blocks = append(db.blocks, block)

	return block, nil
}

// copyBlocks performs a deep copy of the blocks.
func copyBlocks(blocks []Block) []Block {
	var out []Block
	if err := copier.CopyWithOption(&out, blocks, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("database: unable to copy blocks: %s", err))
	}

	return out
}
