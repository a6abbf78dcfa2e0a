package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"txgrind/blockchain"
	"txgrind/database"
	"txgrind/grind"
	"txgrind/metrics"
)

// job is one grind request, either from flags or from a batch file.
type job struct {
	Tx            json.RawMessage `json:"tx"`
	Criteria      grind.Spec      `json:"criteria"`
	Grinder       string          `json:"grinder,omitempty"`
	MaxIterations *uint64         `json:"max_iterations,omitempty"` // nil falls back to config, 0 is unlimited
	Timeout       string          `json:"timeout,omitempty"`
}

type grindOutput struct {
	TxID       string                  `json:"txid"`
	OriginalID string                  `json:"original_txid"`
	Hex        string                  `json:"hex,omitempty"`
	Iterations uint64                  `json:"iterations"`
	Elapsed    string                  `json:"elapsed"`
	Error      string                  `json:"error,omitempty"`
	Tx         *blockchain.Transaction `json:"tx,omitempty"`
}

// runner executes jobs against shared sinks.
type runner struct {
	env     *env
	db      *database.BoltDB
	metrics *metrics.Metrics
}

func (r *runner) run(ctx context.Context, tx *blockchain.Transaction, spec grind.Spec, grinderName string, maxIter uint64, timeout time.Duration) (*grindOutput, error) {
	criteria, err := spec.Parse()
	if err != nil {
		return nil, err
	}
	if grinderName == "" {
		grinderName = "sequence"
	}
	grinder, err := grind.ParseGrinder(grinderName)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	originalID := tx.Rehash().String()
	log := r.env.log.WithFields(logrus.Fields{
		"original_txid": originalID,
		"criteria":      spec.String(),
		"grinder":       grinderName,
	})

	opts := []grind.Option{
		grind.WithGrinder(grinder),
		grind.WithMaxIterations(maxIter),
		grind.WithLogger(log),
	}
	if r.metrics != nil {
		opts = append(opts, grind.WithObserver(r.metrics.Observer(grinderName)))
	}

	res, err := grind.Search(ctx, tx, criteria, opts...)
	out := &grindOutput{
		TxID:       res.Hash.String(),
		OriginalID: originalID,
		Iterations: res.Iterations,
		Elapsed:    res.Elapsed.String(),
	}
	if err != nil {
		out.Error = err.Error()
		return out, err
	}

	raw, err := tx.Serialize()
	if err != nil {
		return out, err
	}
	out.Hex = hex.EncodeToString(raw)
	out.Tx = tx

	if r.db != nil {
		rec := &database.Record{
			TxID:       out.TxID,
			OriginalID: originalID,
			RawTx:      out.Hex,
			Grinder:    grinderName,
			Criteria:   spec.String(),
			Iterations: res.Iterations,
			Elapsed:    out.Elapsed,
			CreatedAt:  time.Now().UTC(),
		}
		if err := r.db.PutRecord(rec); err != nil {
			return out, errors.Wrap(err, "storing result")
		}
	}

	log.WithFields(logrus.Fields{
		"txid":       out.TxID,
		"iterations": out.Iterations,
	}).Info("grind satisfied")
	return out, nil
}

// newRunner opens the sinks the config asks for. close must be called.
func newRunner(c *cli.Context, e *env) (r *runner, closeFn func() error, err error) {
	r = &runner{env: e}

	metricsFile := e.cfg.MetricsFile
	if c.IsSet("metrics-file") {
		metricsFile = c.String("metrics-file")
	}
	var reg *prometheus.Registry
	if metricsFile != "" {
		reg = prometheus.NewRegistry()
		r.metrics = metrics.NewMetrics(reg)
	}

	if !c.Bool("no-store") {
		r.db, err = e.openDB()
		if err != nil {
			return nil, nil, err
		}
	}

	closeFn = func() error {
		var firstErr error
		if reg != nil {
			if err := metrics.WriteTextfile(metricsFile, reg); err != nil {
				firstErr = errors.Wrapf(err, "writing metrics to %s", metricsFile)
			}
		}
		if r.db != nil {
			if err := r.db.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return r, closeFn, nil
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "write Prometheus textfile metrics here (default $TXGRIND_METRICS_FILE)",
		},
		&cli.BoolFlag{
			Name:  "no-store",
			Usage: "do not record results in the history database",
		},
	}
}

func grindCommand() *cli.Command {
	return &cli.Command{
		Name:  "grind",
		Usage: "Grind one transaction",
		Description: `Reads a transaction (JSON as printed by newtx, or raw hex) and mutates it
until its txid satisfies the criteria.

Criteria kinds and params:
   even                       last byte of the txid is even
   prefix  --param value=HEX  txid starts with HEX
   suffix  --param value=HEX  txid ends with HEX
   target  --param bits=BITS  txid is below the compact target BITS
   equals  --param hash=TXID  txid equals TXID

Examples:
  txgrind newtx --outpoint <txid>:0 --amount 1000 | txgrind grind --criteria prefix --param value=000
  txgrind grind --tx tx.hex --grinder opreturn --criteria target --param bits=0x1f00ffff`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "tx",
				Usage: "transaction file, - for stdin",
				Value: "-",
			},
			&cli.StringFlag{
				Name:  "criteria",
				Usage: "criteria kind",
				Value: "even",
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "criteria parameter as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "grinder",
				Usage: "mutation strategy: " + strings.Join(grind.GrinderNames(), ", "),
				Value: "sequence",
			},
			&cli.Uint64Flag{
				Name:  "max-iterations",
				Usage: "give up after this many mutations, 0 for no limit (default $TXGRIND_MAX_ITERATIONS)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "give up after this long, 0 for no limit (default $TXGRIND_TIMEOUT)",
			},
		}, runFlags()...),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}

			params, err := parseParams(c.StringSlice("param"))
			if err != nil {
				return err
			}
			spec := grind.Spec{Kind: c.String("criteria"), Params: params}

			in, err := openInput(c, c.String("tx"))
			if err != nil {
				return err
			}
			tx, err := readTransaction(in)
			in.Close()
			if err != nil {
				return err
			}

			maxIter := e.cfg.MaxIterations
			if c.IsSet("max-iterations") {
				maxIter = c.Uint64("max-iterations")
			}
			timeout := e.cfg.Timeout
			if c.IsSet("timeout") {
				timeout = c.Duration("timeout")
			}

			r, closeFn, err := newRunner(c, e)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			out, runErr := r.run(ctx, tx, spec, c.String("grinder"), maxIter, timeout)
			closeErr := closeFn()
			if out != nil {
				if err := writeJSON(c.App.Writer, out); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			return closeErr
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Grind every job in a JSON file, one after another",
		Description: `The jobs file holds a JSON array:

  [{"tx": <transaction JSON or hex string>,
    "criteria": {"kind": "prefix", "params": {"value": "00"}},
    "grinder": "sequence",
    "max_iterations": 100000,
    "timeout": "30s"}]

Failed jobs are reported and do not stop the batch; the command fails if any
job failed.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "jobs",
				Usage:    "jobs file, - for stdin",
				Required: true,
			},
		}, runFlags()...),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}

			in, err := openInput(c, c.String("jobs"))
			if err != nil {
				return err
			}
			var jobs []job
			err = json.NewDecoder(in).Decode(&jobs)
			in.Close()
			if err != nil {
				return errors.Wrap(err, "decoding jobs")
			}

			r, closeFn, err := newRunner(c, e)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			outs := make([]*grindOutput, 0, len(jobs))
			failed := 0
			for i, j := range jobs {
				out, err := r.runJob(ctx, j)
				if err != nil {
					failed++
					e.log.WithField("job", i).WithError(err).Error("job failed")
					if out == nil {
						out = &grindOutput{Error: err.Error()}
					}
				}
				outs = append(outs, out)
				if ctx.Err() != nil {
					break
				}
			}

			closeErr := closeFn()
			if err := writeJSON(c.App.Writer, outs); err != nil {
				return err
			}
			if failed > 0 {
				return errors.Errorf("%d of %d jobs failed", failed, len(jobs))
			}
			return closeErr
		},
	}
}

func (r *runner) runJob(ctx context.Context, j job) (*grindOutput, error) {
	tx, err := parseTransaction(j.Tx)
	if err != nil {
		return nil, err
	}
	maxIter := r.env.cfg.MaxIterations
	if j.MaxIterations != nil {
		maxIter = *j.MaxIterations
	}
	timeout := r.env.cfg.Timeout
	if j.Timeout != "" {
		timeout, err = time.ParseDuration(j.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "job timeout %q", j.Timeout)
		}
	}
	return r.run(ctx, tx, j.Criteria, j.Grinder, maxIter, timeout)
}
