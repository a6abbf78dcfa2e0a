package grind

import (
	"strings"

	btcchain "github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Criteria decides whether a transaction id is acceptable. It must be pure.
type Criteria func(hash chainhash.Hash) bool

// The helpers below look at the id in display order, the byte-reversed form
// chainhash.Hash.String prints and nodes report as the txid.

// EvenLastByte accepts ids whose last displayed byte is even.
func EvenLastByte(hash chainhash.Hash) bool {
	return hash[0]%2 == 0
}

// HexPrefix accepts ids whose displayed hex starts with prefix.
func HexPrefix(prefix string) Criteria {
	prefix = strings.ToLower(prefix)
	return func(hash chainhash.Hash) bool {
		return strings.HasPrefix(hash.String(), prefix)
	}
}

// HexSuffix accepts ids whose displayed hex ends with suffix.
func HexSuffix(suffix string) Criteria {
	suffix = strings.ToLower(suffix)
	return func(hash chainhash.Hash) bool {
		return strings.HasSuffix(hash.String(), suffix)
	}
}

// BelowTarget accepts ids that would satisfy proof of work at the compact
// difficulty bits.
func BelowTarget(bits uint32) Criteria {
	target := btcchain.CompactToBig(bits)
	return func(hash chainhash.Hash) bool {
		return btcchain.HashToBig(&hash).Cmp(target) <= 0
	}
}

// Equals accepts exactly one id.
func Equals(want chainhash.Hash) Criteria {
	return func(hash chainhash.Hash) bool {
		return hash == want
	}
}

func Not(c Criteria) Criteria {
	return func(hash chainhash.Hash) bool { return !c(hash) }
}

// All accepts ids every criteria accepts. All() accepts everything.
func All(cs ...Criteria) Criteria {
	return func(hash chainhash.Hash) bool {
		for _, c := range cs {
			if !c(hash) {
				return false
			}
		}
		return true
	}
}

// Any accepts ids at least one criteria accepts. Any() accepts nothing.
func Any(cs ...Criteria) Criteria {
	return func(hash chainhash.Hash) bool {
		for _, c := range cs {
			if c(hash) {
				return true
			}
		}
		return false
	}
}
