package blockchain

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// TxInput spends a previous output.
type TxInput struct {
	TxID     string `json:"txid"`   // previous transaction id, display order
	Index    uint32 `json:"vout"`   // previous output index
	Script   string `json:"script"` // signature script hex
	Sequence uint32 `json:"sequence"`
}

// TxOutput locks Amount satoshis behind Script.
type TxOutput struct {
	Amount int64  `json:"amount"`
	Script string `json:"script"` // locking script hex
}

// Transaction is a mutable transaction with a cached id. The id is the
// double sha256 of the non-witness wire encoding, the same value nodes print
// as the txid. After any mutation call Rehash to refresh it.
type Transaction struct {
	ID       string     `json:"txid,omitempty"`
	Version  int32      `json:"version"`
	Inputs   []TxInput  `json:"inputs"`
	Outputs  []TxOutput `json:"outputs"`
	LockTime uint32     `json:"locktime"`

	hash   chainhash.Hash
	hashed bool
}

func NewTransaction(inputs []TxInput, outputs []TxOutput) *Transaction {
	tx := &Transaction{
		Version: wire.TxVersion,
		Inputs:  inputs,
		Outputs: outputs,
	}
	tx.Rehash()
	return tx
}

// NewOutput builds an output from an amount and a raw locking script.
func NewOutput(amount int64, script []byte) TxOutput {
	return TxOutput{Amount: amount, Script: hex.EncodeToString(script)}
}

// AddOutput appends an output. The cached id is left stale.
func (tx *Transaction) AddOutput(out TxOutput) {
	tx.Outputs = append(tx.Outputs, out)
}

// Hash returns the cached id, computing it on first use.
func (tx *Transaction) Hash() chainhash.Hash {
	if !tx.hashed {
		return tx.Rehash()
	}
	return tx.hash
}

// Rehash recomputes the id from the current contents and overwrites the
// cached value. It does not validate: a malformed hex script contributes the
// bytes decoded before the bad character and a malformed txid hashes as the
// zero outpoint. Call MsgTx first to reject such transactions.
func (tx *Transaction) Rehash() chainhash.Hash {
	msg, _ := tx.buildMsgTx(false)
	tx.hash = msg.TxHash()
	tx.hashed = true
	tx.ID = tx.hash.String()
	return tx.hash
}

// MsgTx converts the transaction into its btcd wire form.
func (tx *Transaction) MsgTx() (*wire.MsgTx, error) {
	return tx.buildMsgTx(true)
}

func (tx *Transaction) buildMsgTx(strict bool) (*wire.MsgTx, error) {
	msg := wire.NewMsgTx(tx.Version)
	msg.LockTime = tx.LockTime

	for i, in := range tx.Inputs {
		prev := chainhash.Hash{}
		if in.TxID != "" {
			h, err := chainhash.NewHashFromStr(in.TxID)
			if err != nil && strict {
				return nil, errors.Wrapf(err, "input %d txid", i)
			}
			if h != nil {
				prev = *h
			}
		}
		script, err := hex.DecodeString(in.Script)
		if err != nil && strict {
			return nil, errors.Wrapf(err, "input %d script", i)
		}
		txIn := wire.NewTxIn(wire.NewOutPoint(&prev, in.Index), script, nil)
		txIn.Sequence = in.Sequence
		msg.AddTxIn(txIn)
	}

	for i, out := range tx.Outputs {
		script, err := hex.DecodeString(out.Script)
		if err != nil && strict {
			return nil, errors.Wrapf(err, "output %d script", i)
		}
		msg.AddTxOut(wire.NewTxOut(out.Amount, script))
	}

	return msg, nil
}

// FromMsgTx copies a btcd transaction. Witness data is dropped.
func FromMsgTx(msg *wire.MsgTx) *Transaction {
	tx := &Transaction{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		Inputs:   make([]TxInput, 0, len(msg.TxIn)),
		Outputs:  make([]TxOutput, 0, len(msg.TxOut)),
	}
	for _, in := range msg.TxIn {
		tx.Inputs = append(tx.Inputs, TxInput{
			TxID:     in.PreviousOutPoint.Hash.String(),
			Index:    in.PreviousOutPoint.Index,
			Script:   hex.EncodeToString(in.SignatureScript),
			Sequence: in.Sequence,
		})
	}
	for _, out := range msg.TxOut {
		tx.Outputs = append(tx.Outputs, NewOutput(out.Value, out.PkScript))
	}
	tx.Rehash()
	return tx
}

// Serialize returns the non-witness wire encoding.
func (tx *Transaction) Serialize() ([]byte, error) {
	msg, err := tx.MsgTx()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSizeStripped())
	if err := msg.SerializeNoWitness(&buf); err != nil {
		return nil, errors.Wrap(err, "serializing transaction")
	}
	return buf.Bytes(), nil
}

func DeserializeTransaction(b []byte) (*Transaction, error) {
	var msg wire.MsgTx
	if err := msg.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(err, "decoding transaction")
	}
	return FromMsgTx(&msg), nil
}

// DecodeTransactionHex decodes a raw transaction in hex.
func DecodeTransactionHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decoding transaction hex")
	}
	return DeserializeTransaction(b)
}

// Copy returns a deep copy with the same cached id.
func (tx *Transaction) Copy() *Transaction {
	cp := *tx
	cp.Inputs = append([]TxInput(nil), tx.Inputs...)
	cp.Outputs = append([]TxOutput(nil), tx.Outputs...)
	return &cp
}

// TotalOut sums all output amounts.
func (tx *Transaction) TotalOut() int64 {
	var sum int64
	for _, out := range tx.Outputs {
		sum += out.Amount
	}
	return sum
}
