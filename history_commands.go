package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"txgrind/blockchain"
	"txgrind/database"
)

func historyListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored grind results",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print JSON instead of a table",
			},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("history is disabled (empty database path)")
			}
			defer db.Close()

			recs, err := db.ListRecords()
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, recs)
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TXID\tGRINDER\tCRITERIA\tITERATIONS\tELAPSED\tCREATED")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					rec.TxID, rec.Grinder, rec.Criteria, rec.Iterations, rec.Elapsed,
					rec.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(tw, "\n%d results, %d runs recorded\n", len(recs), db.Runs())
			return tw.Flush()
		},
	}
}

type historyEntry struct {
	Record  *database.Record         `json:"record"`
	Tx      *blockchain.Transaction `json:"tx"`
	Outputs []string                `json:"outputs_asm"`
}

func historyShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one stored result",
		ArgsUsage: "<txid>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one txid")
			}
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("history is disabled (empty database path)")
			}
			defer db.Close()

			rec, err := db.GetRecord(c.Args().First())
			if err != nil {
				return err
			}
			tx, err := blockchain.DecodeTransactionHex(rec.RawTx)
			if err != nil {
				return err
			}
			entry := historyEntry{Record: rec, Tx: tx}
			for _, out := range tx.Outputs {
				entry.Outputs = append(entry.Outputs, blockchain.DisasmScript(out.Script))
			}
			return writeJSON(c.App.Writer, entry)
		},
	}
}
