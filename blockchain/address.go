package blockchain

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/ripemd160"
)

// Hash160 is ripemd160(sha256(b)).
func Hash160(b []byte) []byte {
	sha := sha256.Sum256(b)

	rip := ripemd160.New()
	_, _ = rip.Write(sha[:])
	return rip.Sum(nil)
}

// PubKeyToAddress returns the base58check P2PKH address of a serialized
// public key on the given network.
func PubKeyToAddress(pubKey []byte, params *chaincfg.Params) string {
	return base58.CheckEncode(Hash160(pubKey), params.PubKeyHashAddrID)
}
