package main

import (
	"encoding/hex"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"txgrind/wallet"
)

type walletOutput struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Network   string `json:"network"`
	Path      string `json:"path"`
}

func walletNewCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a wallet file",
		Flags: []cli.Flag{
			walletFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing wallet file",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			path := c.String("wallet")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return errors.Errorf("%s already exists, use --force to replace it", path)
			}

			w, err := wallet.NewWallet(e.cfg.Params())
			if err != nil {
				return err
			}
			if err := wallet.SaveWallet(path, w); err != nil {
				return err
			}
			e.log.WithField("address", w.Address).Info("wallet created")
			return writeJSON(c.App.Writer, describeWallet(w, path))
		},
	}
}

func walletShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the wallet address",
		Flags: []cli.Flag{walletFlag()},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			path := c.String("wallet")
			w, err := wallet.LoadWallet(path, e.cfg.Params())
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, describeWallet(w, path))
		},
	}
}

func describeWallet(w *wallet.Wallet, path string) walletOutput {
	return walletOutput{
		Address:   w.Address,
		PublicKey: hex.EncodeToString(w.PublicKey),
		Network:   w.Params.Name,
		Path:      path,
	}
}
