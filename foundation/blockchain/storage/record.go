package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
)

// Record represents what is written into a table. The integrity value is
// the fingerprint of the payload at the time it was written.
type Record[T any] struct {
	Payload   T      `json:"payload"`
	SavedAt   int64  `json:"savedAt"`
	Integrity string `json:"integrity"`
}

// NewRecord constructs the envelope for the payload.
func NewRecord[T any](payload T, now time.Time) (Record[T], error) {
	integrity, err := signature.Fingerprint(payload)
	if err != nil {
		return Record[T]{}, err
	}

	rec := Record[T]{
		Payload:   payload,
		SavedAt:   now.UnixMilli(),
		Integrity: integrity,
	}

	return rec, nil
}

// Encode marshals the record for writing to a table.
func (r Record[T]) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Verify recomputes the fingerprint over the payload and compares it to
// the one stored with it.
func (r Record[T]) Verify() bool {
	return signature.Match(r.Payload, r.Integrity)
}

// DecodeRecord unmarshals the bytes read from a table and checks the
// integrity of the payload.
func DecodeRecord[T any](data []byte) (Record[T], error) {
	var rec Record[T]
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record[T]{}, fmt.Errorf("decode record: %w", err)
	}

	if !rec.Verify() {
		return rec, fmt.Errorf("integrity check failed: stored %s", rec.Integrity)
	}

	return rec, nil
}

// =============================================================================

// Uint64Key encodes the number so keys iterate in numeric order.
func Uint64Key(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

// KeyUint64 decodes a key produced by Uint64Key.
func KeyUint64(key []byte) (uint64, error) {
	if len(key) != 8 {
		return 0, fmt.Errorf("invalid key length %d", len(key))
	}
	return binary.BigEndian.Uint64(key), nil
}
