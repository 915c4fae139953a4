package database

import (
	"time"

	"github.com/google/uuid"
)

// MiningRecord represents a reward earned for mining a block. The record
// only references the block by hash, it does not own it.
type MiningRecord struct {
	ID         string    `json:"id"`
	BlockHash  string    `json:"blockHash"`
	Reward     uint64    `json:"reward"`
	Timestamp  Timestamp `json:"timestamp"`
	Difficulty uint      `json:"difficulty"`
	MiningTime int64     `json:"miningTime"` // Milliseconds spent searching for the nonce.
}

// NewMiningRecord constructs the reward record for a mined block.
func NewMiningRecord(block Block, reward uint64, miningTime time.Duration, now time.Time) MiningRecord {
	return MiningRecord{
		ID:         uuid.NewString(),
		BlockHash:  block.Hash,
		Reward:     reward,
		Timestamp:  NewTimestamp(now),
		Difficulty: block.Difficulty,
		MiningTime: miningTime.Milliseconds(),
	}
}
