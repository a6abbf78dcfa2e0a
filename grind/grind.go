// Package grind searches for a transaction whose id satisfies a predicate by
// repeatedly mutating a malleable field and rehashing.
//
// The transaction is borrowed exclusively for the duration of a call: the
// loop mutates it in place and it must not be read or written by another
// goroutine until the call returns.
package grind

import (
	"context"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"txgrind/blockchain"
)

// ctxCheckInterval is how many mutations run between context polls.
const ctxCheckInterval = 256

var ErrExhausted = errors.New("iteration limit reached")

// Result describes a finished search.
type Result struct {
	Hash       chainhash.Hash
	Iterations uint64 // grinder calls
	Elapsed    time.Duration
}

// Observer is told about every search exactly once, when it ends.
type Observer interface {
	ObserveGrind(res *Result, err error)
}

type options struct {
	grinder       Grinder
	maxIterations uint64
	log           logrus.FieldLogger
	observers     []Observer
}

type Option func(*options)

// WithGrinder selects the mutation strategy. Nil keeps IncrementSequence.
func WithGrinder(g Grinder) Option {
	return func(o *options) {
		if g != nil {
			o.grinder = g
		}
	}
}

// WithMaxIterations caps the number of grinder calls. Zero means no cap.
func WithMaxIterations(n uint64) Option {
	return func(o *options) { o.maxIterations = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

func newOptions(opts []Option) *options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := &options{
		grinder: IncrementSequence,
		log:     discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Grind mutates tx with grinder until criteria accepts its id. A nil grinder
// means IncrementSequence. There is no iteration cap and no cancellation: if
// no reachable mutation satisfies criteria, Grind never returns. It fails
// only when tx has no wire encoding or the grinder returns an error.
func Grind(tx *blockchain.Transaction, criteria Criteria, grinder Grinder) error {
	_, err := Search(context.Background(), tx, criteria, WithGrinder(grinder))
	return err
}

// Search is Grind with an optional iteration cap, context cancellation and
// reporting. On ErrExhausted or a context error tx is left in its last
// mutated state with a fresh id.
func Search(ctx context.Context, tx *blockchain.Transaction, criteria Criteria, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	start := time.Now()
	res := &Result{}

	finish := func(err error) (*Result, error) {
		res.Hash = tx.Hash()
		res.Elapsed = time.Since(start)
		for _, obs := range o.observers {
			obs.ObserveGrind(res, err)
		}
		if err != nil {
			o.log.WithFields(logrus.Fields{
				"txid":       res.Hash.String(),
				"iterations": res.Iterations,
				"elapsed":    res.Elapsed,
			}).WithError(err).Warn("grind stopped")
			return res, err
		}
		o.log.WithFields(logrus.Fields{
			"txid":       res.Hash.String(),
			"iterations": res.Iterations,
			"elapsed":    res.Elapsed,
		}).Debug("grind satisfied")
		return res, nil
	}

	if _, err := tx.MsgTx(); err != nil {
		return finish(errors.Wrap(err, "invalid transaction"))
	}

	hash := tx.Rehash()
	o.log.WithFields(logrus.Fields{
		"txid":           hash.String(),
		"max_iterations": o.maxIterations,
	}).Debug("grind started")

	for !criteria(hash) {
		if o.maxIterations > 0 && res.Iterations >= o.maxIterations {
			return finish(errors.Wrapf(ErrExhausted, "after %d iterations", res.Iterations))
		}
		if res.Iterations%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return finish(errors.Wrapf(err, "grind cancelled after %d iterations", res.Iterations))
			}
		}
		if err := o.grinder(tx); err != nil {
			return finish(errors.Wrap(err, "grinder"))
		}
		res.Iterations++
		hash = tx.Rehash()
	}

	return finish(nil)
}
