// Package genesis maintains access to the genesis settings of the chain.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Genesis represents the settings used to build the first block and to
// reward miners.
type Genesis struct {
	Date         time.Time `json:"date" yaml:"date"`                   // Fixed genesis timestamp so independent nodes share one genesis block.
	PreviousHash string    `json:"previous_hash" yaml:"previous_hash"` // Sentinel previous hash of the genesis block.
	Proof        uint64    `json:"proof" yaml:"proof"`                 // Sentinel proof of the genesis block.
	MiningReward uint64    `json:"mining_reward" yaml:"mining_reward"` // Amount granted to the node that mines a block.
	RewardSender string    `json:"reward_sender" yaml:"reward_sender"` // Sender recorded on the mining reward transaction.
}

// Default returns the genesis settings used when no file is provided.
func Default() Genesis {
	return Genesis{
		PreviousHash: "1",
		Proof:        100,
		MiningReward: 1,
		RewardSender: "0",
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Files with a .yaml or .yml
// extension are decoded as YAML, everything else as JSON. Settings missing
// from the file keep their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &genesis)
	default:
		err = json.Unmarshal(content, &genesis)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file %q: %w", path, err)
	}

	if genesis.PreviousHash == "" {
		return Genesis{}, errors.New("genesis previous hash can't be empty")
	}

	return genesis, nil
}

// Timestamp returns the timestamp for the genesis block in unix nanoseconds.
// Without a configured date the current time is used.
func (g Genesis) Timestamp() int64 {
	if g.Date.IsZero() {
		return time.Now().UTC().UnixNano()
	}
	return g.Date.UTC().UnixNano()
}
