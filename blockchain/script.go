package blockchain

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pkg/errors"
)

// OpReturnScript returns a provably unspendable script with the OP_RETURN
// opcode followed by the optional data pushes.
func OpReturnScript(data ...[]byte) ([]byte, error) {
	builder := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN)
	for _, d := range data {
		builder.AddData(d)
	}
	script, err := builder.Script()
	if err != nil {
		return nil, errors.Wrap(err, "building OP_RETURN script")
	}
	return script, nil
}

// IsUnspendable reports whether a hex locking script is a data carrier.
func IsUnspendable(scriptHex string) bool {
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return false
	}
	return txscript.GetScriptClass(script) == txscript.NullDataTy
}

// PayToAddrScript decodes addr for the given network and returns the
// locking script paying to it.
func PayToAddrScript(addr string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding address %q", addr)
	}
	if !decoded.IsForNet(params) {
		return nil, errors.Errorf("address %s is not for %s", addr, params.Name)
	}
	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, errors.Wrap(err, "building pay-to-address script")
	}
	return script, nil
}

// DisasmScript renders a hex script in one-line assembly. Undecodable input
// is returned as is.
func DisasmScript(scriptHex string) string {
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return scriptHex
	}
	s, err := txscript.DisasmString(script)
	if err != nil {
		return scriptHex
	}
	return s
}
