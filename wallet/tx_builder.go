package wallet

import (
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"txgrind/blockchain"
)

// ParseOutpoint parses "txid:index".
func ParseOutpoint(s string) (string, uint32, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", 0, errors.Errorf("outpoint %q is not txid:index", s)
	}
	if _, err := chainhash.NewHashFromStr(parts[0]); err != nil || len(parts[0]) != 2*chainhash.HashSize {
		return "", 0, errors.Errorf("outpoint %q has a malformed txid", s)
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, errors.Wrapf(err, "outpoint %q index", s)
	}
	return parts[0], uint32(index), nil
}

// BuildSpend returns an unsigned transaction spending one outpoint to script.
func BuildSpend(prevTxID string, index uint32, sequence uint32, amount int64, script []byte) (*blockchain.Transaction, error) {
	if amount < 0 {
		return nil, errors.Errorf("negative amount %d", amount)
	}
	return blockchain.NewTransaction(
		[]blockchain.TxInput{{TxID: prevTxID, Index: index, Sequence: sequence}},
		[]blockchain.TxOutput{blockchain.NewOutput(amount, script)},
	), nil
}

// PayTo builds an unsigned spend of one outpoint to the wallet.
func (w *Wallet) PayTo(prevTxID string, index uint32, sequence uint32, amount int64) (*blockchain.Transaction, error) {
	script, err := w.LockingScript()
	if err != nil {
		return nil, err
	}
	return BuildSpend(prevTxID, index, sequence, amount, script)
}
