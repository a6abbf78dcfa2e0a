package grind

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"txgrind/blockchain"
)

// MaxAllowedSequence is the first sequence value IncrementSequence refuses
// to produce. Everything from here up to wire.MaxTxInSequenceNum is left
// alone so the input never becomes final.
const MaxAllowedSequence uint32 = wire.MaxTxInSequenceNum - 1

// Grinder mutates a transaction so that its id changes. It must not touch the
// cached id; the search loop rehashes after every call.
type Grinder func(tx *blockchain.Transaction) error

var ErrNoInputs = errors.New("transaction has no inputs")

// IncrementSequence bumps the first input's sequence, wrapping to zero before
// it reaches MaxAllowedSequence.
func IncrementSequence(tx *blockchain.Transaction) error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	tx.Inputs[0].Sequence = NextSequence(tx.Inputs[0].Sequence)
	return nil
}

// NextSequence is the value IncrementSequence moves seq to.
func NextSequence(seq uint32) uint32 {
	next := seq + 1
	if next >= MaxAllowedSequence || next < seq {
		return 0
	}
	return next
}

// AppendOpReturn adds a zero value OP_RETURN output.
func AppendOpReturn(tx *blockchain.Transaction) error {
	script, err := blockchain.OpReturnScript()
	if err != nil {
		return err
	}
	tx.AddOutput(blockchain.NewOutput(0, script))
	return nil
}
