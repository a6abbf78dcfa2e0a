package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "txgrind",
		Usage: "mutate transactions until their txid matches a predicate",
		Description: `txgrind rewrites a malleable field of a transaction (the first input's
sequence number, or a trailing OP_RETURN output) until the transaction id
satisfies a criteria such as a hex prefix or a proof of work target.

Settings come from TXGRIND_* environment variables; global flags override them.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "history database path, empty to disable (default $TXGRIND_DB_PATH)",
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "mainnet, testnet3, regtest or simnet (default $TXGRIND_NETWORK)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "logrus level (default $LOG_LEVEL)",
			},
		},
		Commands: []*cli.Command{
			newTxCommand(),
			grindCommand(),
			batchCommand(),
			{
				Name:  "history",
				Usage: "Inspect stored grind results",
				Subcommands: []*cli.Command{
					historyListCommand(),
					historyShowCommand(),
				},
			},
			{
				Name:  "wallet",
				Usage: "Manage the key used as a default payee",
				Subcommands: []*cli.Command{
					walletNewCommand(),
					walletShowCommand(),
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
