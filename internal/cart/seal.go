package cart

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// Sealer computes the cart integrity seal: a keyed BLAKE2b-256 digest of the item list.
type Sealer struct {
	key []byte
}

// NewSealer returns a Sealer for key. Keys longer than 64 bytes are hashed down first.
func NewSealer(key []byte) *Sealer {
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Sealer{key: k}
}

// Seal returns the hex digest of items.
func (s *Sealer) Seal(items []Item) string {
	if items == nil {
		items = []Item{}
	}
	b, _ := json.Marshal(items)
	h, err := blake2b.New256(s.key)
	if err != nil {
		// unreachable: key length is bounded in NewSealer
		panic(err)
	}
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// Match compares the seal of items with seal in constant time.
func (s *Sealer) Match(items []Item, seal string) bool {
	want := s.Seal(items)
	return subtle.ConstantTimeCompare([]byte(want), []byte(seal)) == 1
}
