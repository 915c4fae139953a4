package database_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
	"github.com/google/go-cmp/cmp"
)

func mineChain(t *testing.T, n int, difficulty uint) []database.Block {
	t.Helper()

	var blocks []database.Block
	var prev *database.Block
	for i := range n {
		tmpl := database.NewTemplate(prev, "block", genesisTemplate().Timestamp.Time())
		tmpl.Timestamp += database.Timestamp(i)

		block, err := database.POW(context.Background(), tmpl, difficulty, database.SearchConfig{}, nil)
		if err != nil {
			t.Fatalf("Should be able to mine block %d: %s", i, err)
		}

		blocks = append(blocks, block)
		prev = &blocks[len(blocks)-1]
	}

	return blocks
}

// =============================================================================

func Test_VerifyChain(t *testing.T) {
	t.Log("Given the need to verify a chain of mined blocks.")
	{
		blocks := mineChain(t, 5, 2)

		report := database.VerifyChain(blocks, nil)
		if !report.IsValid {
			t.Logf("\t%s\tgot: %+v", failed, report.PerBlock)
			t.Fatalf("\t%s\tShould verify a freshly mined chain.", failed)
		}
		t.Logf("\t%s\tShould verify a freshly mined chain.", success)

		if report.ValidBlocks != 5 || report.InvalidBlocks != 0 {
			t.Fatalf("\t%s\tShould count 5 valid blocks: %+v", failed, report)
		}
		t.Logf("\t%s\tShould count 5 valid blocks.", success)
	}
}

func Test_VerifyChainOrder(t *testing.T) {
	blocks := mineChain(t, 3, 1)

	reversed := []database.Block{blocks[2], blocks[1], blocks[0]}

	report := database.VerifyChain(reversed, nil)
	if !report.IsValid {
		t.Fatalf("Should verify blocks in ascending index order: %+v", report.PerBlock)
	}

	for i, result := range report.PerBlock {
		if result.Index != uint64(i) {
			t.Fatalf("Should report blocks in ascending index order: got %d, exp %d", result.Index, i)
		}
	}

	if diff := cmp.Diff(blocks[2], reversed[0]); diff != "" {
		t.Fatalf("Should not reorder the caller's slice:\n%s", diff)
	}
}

func Test_VerifyChainTamper(t *testing.T) {
	t.Log("Given the need to detect a block whose data changed after mining.")
	{
		blocks := mineChain(t, 4, 2)
		blocks[1].Data = "tampered"

		report := database.VerifyChain(blocks, nil)
		if report.IsValid {
			t.Fatalf("\t%s\tShould not verify a tampered chain.", failed)
		}
		t.Logf("\t%s\tShould not verify a tampered chain.", success)

		tampered := report.PerBlock[1]
		if tampered.Valid {
			t.Fatalf("\t%s\tShould report the tampered block as invalid.", failed)
		}
		t.Logf("\t%s\tShould report the tampered block as invalid.", success)

		var hashMismatch bool
		for _, msg := range tampered.Errors {
			if strings.HasPrefix(msg, "hash mismatch") {
				hashMismatch = true
			}
		}
		if !hashMismatch {
			t.Fatalf("\t%s\tShould report a hash mismatch: %v", failed, tampered.Errors)
		}
		t.Logf("\t%s\tShould report a hash mismatch.", success)

		for _, i := range []int{0, 2, 3} {
			if !report.PerBlock[i].Valid {
				t.Fatalf("\t%s\tShould not cascade the failure onto block %d: %v", failed, i, report.PerBlock[i].Errors)
			}
		}
		t.Logf("\t%s\tShould not cascade the failure onto other blocks.", success)

		if report.InvalidBlocks != 1 {
			t.Fatalf("\t%s\tShould count one invalid block: got %d", failed, report.InvalidBlocks)
		}
		t.Logf("\t%s\tShould count one invalid block.", success)
	}
}

func Test_VerifyBlockAllErrors(t *testing.T) {
	block := mineChain(t, 1, 2)[0]
	block.Data = "changed"
	block.Hash = strings.Repeat("f", 64)

	result := database.VerifyBlock(block, "not-the-genesis-hash")
	if result.Valid {
		t.Fatalf("Should not verify the block.")
	}

	if len(result.Errors) != 3 {
		t.Logf("got: %v", result.Errors)
		t.Fatalf("Should report all three violations.")
	}
}

func Test_VerifyChainEmpty(t *testing.T) {
	report := database.VerifyChain(nil, nil)
	if !report.IsValid || report.TotalBlocks != 0 {
		t.Fatalf("Should treat an empty chain as valid: %+v", report)
	}
}

func Test_GenesisLink(t *testing.T) {
	block := mineChain(t, 1, 1)[0]
	if block.PreviousHash != signature.GenesisHash {
		t.Fatalf("Should link the first block to the genesis hash: %s", block.PreviousHash)
	}
}
