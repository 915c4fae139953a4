package database

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
)

// BlockResult represents the outcome of verifying a single block. A failed
// verification is reported as data so every problem can be listed.
type BlockResult struct {
	Index  uint64   `json:"index"`
	Hash   string   `json:"hash"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Report represents the outcome of verifying a chain of blocks.
type Report struct {
	IsValid       bool          `json:"isValid"`
	TotalBlocks   int           `json:"totalBlocks"`
	ValidBlocks   int           `json:"validBlocks"`
	InvalidBlocks int           `json:"invalidBlocks"`
	PerBlock      []BlockResult `json:"perBlock"`
}

// =============================================================================

// VerifyBlock re-derives the hash for the block and checks it against the
// recorded hash, the expected previous hash and the recorded difficulty.
// The checks are independent and every violation is reported.
func VerifyBlock(block Block, expectedPreviousHash string) BlockResult {
	errs := []string{}

	if hash := block.CalculateHash(); hash != block.Hash {
		errs = append(errs, fmt.Sprintf("hash mismatch: calculated %s, recorded %s", hash, block.Hash))
	}

	if block.PreviousHash != expectedPreviousHash {
		errs = append(errs, fmt.Sprintf("previous hash mismatch: expected %s, recorded %s", expectedPreviousHash, block.PreviousHash))
	}

	if !isHashSolved(block.Difficulty, block.Hash) {
		errs = append(errs, fmt.Sprintf("difficulty not met: hash must start with %d zeros", block.Difficulty))
	}

	return BlockResult{
		Index:  block.Index,
		Hash:   block.Hash,
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

// VerifyChain verifies the blocks in ascending index order. The first block
// must link to the genesis hash and every other block must link to the
// recorded hash of the block before it. The recorded hash is used even when
// that block failed its own checks, so a corrupted block is reported by
// itself and does not fail the blocks that follow it.
func VerifyChain(blocks []Block, ev EventHandler) Report {
	ev = ev.safe()

	ordered := make([]Block, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	report := Report{
		IsValid:     true,
		TotalBlocks: len(ordered),
		PerBlock:    make([]BlockResult, 0, len(ordered)),
	}

	expected := signature.GenesisHash
	for _, block := range ordered {
		result := VerifyBlock(block, expected)

		switch result.Valid {
		case true:
			report.ValidBlocks++
		default:
			report.IsValid = false
			report.InvalidBlocks++
			ev("database: VerifyChain: blk[%d]: INVALID: %v", block.Index, result.Errors)
		}

		report.PerBlock = append(report.PerBlock, result)
		expected = block.Hash
	}

	return report
}
