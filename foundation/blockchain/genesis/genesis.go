// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"
)

// DefaultPath is where the genesis file is looked for.
const DefaultPath = "zblock/genesis.json"

// Genesis represents the genesis file.
type Genesis struct {
	Date         time.Time `json:"date"`
	ChainID      uint16    `json:"chain_id"`      // The chain id represents an unique id for this running instance.
	Data         string    `json:"data"`          // Data recorded in the first block of the chain.
	Difficulty   uint      `json:"difficulty"`    // How difficult it needs to be to solve the work problem.
	MiningReward uint64    `json:"mining_reward"` // Reward for mining a block.
	Workers      int       `json:"workers"`       // Number of goroutines searching for a nonce.
}

// Default returns the genesis used when no file exists.
func Default() Genesis {
	return Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:      1,
		Data:         "genesis",
		Difficulty:   4,
		MiningReward: 50,
		Workers:      runtime.NumCPU(),
	}
}

// =============================================================================

// Load opens and consumes the genesis file. A missing file is not an error,
// the default genesis is returned. Values missing from the file are taken
// from the default genesis.
func Load(path string) (Genesis, error) {
	if path == "" {
		path = DefaultPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Genesis{}, err
	}

	genesis := Default()
	genesis.Workers = 0

	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode %s: %w", path, err)
	}

	if genesis.Workers <= 0 {
		genesis.Workers = runtime.NumCPU()
	}

	return genesis, nil
}
