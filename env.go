package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"txgrind/blockchain"
	"txgrind/config"
	"txgrind/database"
)

// env is what every command needs: merged settings and a logger.
type env struct {
	cfg *config.Config
	log *logrus.Logger
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("network") {
		if _, err := config.NetParams(c.String("network")); err != nil {
			return nil, err
		}
		cfg.Network = c.String("network")
	}
	if c.IsSet("log-level") {
		if _, err := logrus.ParseLevel(c.String("log-level")); err != nil {
			return nil, errors.Wrap(err, "log-level")
		}
		cfg.LogLevel = c.String("log-level")
	}
	return &env{cfg: cfg, log: cfg.NewLogger()}, nil
}

// openDB returns nil when history is disabled.
func (e *env) openDB() (*database.BoltDB, error) {
	if e.cfg.DBPath == "" {
		return nil, nil
	}
	return database.OpenDB(e.cfg.DBPath)
}

func openInput(c *cli.Context, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(c.App.Reader), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return f, nil
}

// readTransaction accepts either the JSON form or raw wire hex.
func readTransaction(r io.Reader) (*blockchain.Transaction, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, errors.Wrap(err, "reading transaction")
	}
	return parseTransaction(data)
}

func parseTransaction(data []byte) (*blockchain.Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty transaction input")
	}
	if data[0] == '{' {
		var tx blockchain.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, errors.Wrap(err, "decoding transaction JSON")
		}
		if _, err := tx.MsgTx(); err != nil {
			return nil, err
		}
		tx.Rehash()
		return &tx, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(err, "decoding transaction hex string")
		}
		data = []byte(s)
	}
	return blockchain.DecodeTransactionHex(strings.TrimSpace(string(data)))
}

// parseParams turns key=value pairs into criteria params.
func parseParams(pairs []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, errors.Errorf("param %q is not key=value", pair)
		}
		params[k] = v
	}
	return params, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
