package main

import (
	"encoding/hex"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"txgrind/blockchain"
	"txgrind/wallet"
)

func newTxCommand() *cli.Command {
	return &cli.Command{
		Name:  "newtx",
		Usage: "Build an unsigned transaction to grind",
		Description: `Spends one outpoint to a single output. The payee is --address, --script,
or the wallet file when neither is given.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "outpoint",
				Usage:    "outpoint to spend as txid:index",
				Required: true,
			},
			&cli.Int64Flag{
				Name:     "amount",
				Usage:    "output amount in satoshis",
				Required: true,
			},
			&cli.UintFlag{
				Name:  "sequence",
				Usage: "initial input sequence",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "pay to this address",
			},
			&cli.StringFlag{
				Name:  "script",
				Usage: "pay to this hex locking script",
			},
			walletFlag(),
			&cli.BoolFlag{
				Name:  "hex",
				Usage: "print raw hex instead of JSON",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			params := e.cfg.Params()

			prevTxID, index, err := wallet.ParseOutpoint(c.String("outpoint"))
			if err != nil {
				return err
			}

			seq := c.Uint("sequence")
			if uint64(seq) > 0xffffffff {
				return errors.Errorf("sequence %d does not fit in 32 bits", seq)
			}
			amount := c.Int64("amount")

			var (
				tx     *blockchain.Transaction
				script []byte
			)
			switch {
			case c.IsSet("address") && c.IsSet("script"):
				return errors.New("--address and --script are exclusive")
			case c.IsSet("address"):
				script, err = blockchain.PayToAddrScript(c.String("address"), params)
				if err == nil {
					tx, err = wallet.BuildSpend(prevTxID, index, uint32(seq), amount, script)
				}
			case c.IsSet("script"):
				script, err = hex.DecodeString(c.String("script"))
				if err != nil {
					return errors.Wrap(err, "decoding --script")
				}
				tx, err = wallet.BuildSpend(prevTxID, index, uint32(seq), amount, script)
			default:
				var w *wallet.Wallet
				w, err = wallet.LoadWallet(c.String("wallet"), params)
				if err == nil {
					tx, err = w.PayTo(prevTxID, index, uint32(seq), amount)
				}
			}
			if err != nil {
				return err
			}

			if c.Bool("hex") {
				raw, err := tx.Serialize()
				if err != nil {
					return err
				}
				_, err = c.App.Writer.Write([]byte(hex.EncodeToString(raw) + "\n"))
				return err
			}
			return writeJSON(c.App.Writer, tx)
		},
	}
}

func walletFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "wallet",
		Usage: "wallet file holding a WIF key",
		Value: filepath.Join(".", "txgrind.wallet"),
	}
}
