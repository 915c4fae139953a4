package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
)

// MaxDifficulty is the largest difficulty that can be solved since a hash
// is represented by 64 hex characters.
const MaxDifficulty = 64

// ErrInvalidDifficulty is returned when a difficulty can never be solved.
var ErrInvalidDifficulty = errors.New("difficulty exceeds hash length")

// ErrInvalidData is returned when block data is not valid UTF-8 text. Such
// data can't survive the JSON encoding blocks are stored with.
var ErrInvalidData = errors.New("block data is not valid UTF-8")

// =============================================================================

// Timestamp represents a point in time stored as epoch milliseconds. The
// hash of a block is sensitive to the textual form of the timestamp, so all
// values are normalized to milliseconds before they are hashed.
type Timestamp int64

// NewTimestamp converts a time value into a timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time returns the timestamp as a UTC time value.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

// String returns the text used when hashing the timestamp.
func (ts Timestamp) String() string {
	return strconv.FormatInt(int64(ts), 10)
}

// UnmarshalJSON accepts epoch milliseconds as a number or a string, and
// ISO-8601 strings.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			*ts = Timestamp(ms)
			return nil
		}

		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}

		*ts = NewTimestamp(t)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	if ms, err := n.Int64(); err == nil {
		*ts = Timestamp(ms)
		return nil
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", n, err)
	}
	*ts = Timestamp(f)

	return nil
}

// =============================================================================

// Template represents the fields of a block that are fixed before the
// nonce search begins.
type Template struct {
	Index        uint64    `json:"index"`
	PreviousHash string    `json:"previousHash" validate:"required,len=64,hexadecimal"`
	Data         string    `json:"data" validate:"utf8"`
	Timestamp    Timestamp `json:"timestamp"`
}

// NewTemplate constructs the template for the block that follows the
// specified block. When there is no previous block, the template is for
// the genesis block.
func NewTemplate(prevBlock *Block, data string, now time.Time) Template {
	if prevBlock == nil {
		return Template{
			Index:        0,
			PreviousHash: signature.GenesisHash,
			Data:         data,
			Timestamp:    NewTimestamp(now),
		}
	}

	return Template{
		Index:        prevBlock.Index + 1,
		PreviousHash: prevBlock.Hash,
		Data:         data,
		Timestamp:    NewTimestamp(now),
	}
}

// Block represents one link in the chain.
type Block struct {
	Index        uint64    `json:"index"`
	Hash         string    `json:"hash"`
	PreviousHash string    `json:"previousHash"`
	Data         string    `json:"data"`
	Timestamp    Timestamp `json:"timestamp"`
	Nonce        uint64    `json:"nonce"`
	Difficulty   uint      `json:"difficulty"`
}

// CheckData returns ErrInvalidData when the block data is not valid UTF-8.
func (b Block) CheckData() error {
	if !utf8.ValidString(b.Data) {
		return fmt.Errorf("block %d: %w", b.Index, ErrInvalidData)
	}
	return nil
}

// CalculateHash re-derives the hash for the block from its fields.
func (b Block) CalculateHash() string {
	return CalculateHash(b.Index, b.PreviousHash, b.Data, b.Timestamp, b.Nonce)
}

// CalculateHash returns the hex encoded SHA-256 digest over the text
// concatenation of the block fields.
func CalculateHash(index uint64, previousHash string, data string, timestamp Timestamp, nonce uint64) string {
	return newHasher(Template{
		Index:        index,
		PreviousHash: previousHash,
		Data:         data,
		Timestamp:    timestamp,
	}).hash(nonce)
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if difficulty > MaxDifficulty || uint(len(hash)) < difficulty {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}

// =============================================================================

// hasher reuses the fixed prefix of a template so only the nonce needs to
// be formatted on every attempt.
type hasher struct {
	prefix []byte
	buf    []byte
}

func newHasher(tmpl Template) *hasher {
	var prefix []byte
	prefix = strconv.AppendUint(prefix, tmpl.Index, 10)
	prefix = append(prefix, tmpl.PreviousHash...)
	prefix = append(prefix, tmpl.Data...)
	prefix = strconv.AppendInt(prefix, int64(tmpl.Timestamp), 10)

	return &hasher{
		prefix: prefix,
		buf:    make([]byte, 0, len(prefix)+20),
	}
}

func (h *hasher) hash(nonce uint64) string {
	h.buf = append(h.buf[:0], h.prefix...)
	h.buf = strconv.AppendUint(h.buf, nonce, 10)

	sum := sha256.Sum256(h.buf)
	return hex.EncodeToString(sum[:])
}
