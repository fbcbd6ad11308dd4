package resultcache

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key is the fixed-size digest a raw input string is stored under.
type Key uint64

// Digest derives the storage key for raw. Equal inputs always produce equal
// keys; the empty string is hashed like any other input.
func Digest(raw string) Key {
	return Key(xxhash.Sum64String(raw))
}

// String renders the key as 16 lowercase hex digits.
func (k Key) String() string {
	s := strconv.FormatUint(uint64(k), 16)
	if len(s) < 16 {
		s = "0000000000000000"[len(s):] + s
	}
	return s
}
