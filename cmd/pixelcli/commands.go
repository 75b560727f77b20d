package main

import (
	"io/ioutil"

	"github.com/urfave/cli"
)

var sendYuvTransactionCommand = cli.Command{
	Name:      "sendyuvtransaction",
	Category:  "Transactions",
	Usage:     "Submit a colored-coin proof for a Bitcoin transaction.",
	ArgsUsage: "tx-hex-file",
	Action:    actionDecorator(sendYuvTransaction),
}

func sendYuvTransaction(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 1 {
		return cli.ShowCommandHelp(ctx, "sendyuvtransaction")
	}

	raw, err := ioutil.ReadFile(args.Get(0))
	if err != nil {
		return err
	}

	return call(ctx, "sendyuvtransaction", map[string]string{"tx_hex": string(raw)})
}

var getYuvTransactionCommand = cli.Command{
	Name:      "getyuvtransaction",
	Category:  "Transactions",
	Usage:     "Look up a transaction's lifecycle status and, once attached, its proof.",
	ArgsUsage: "txid",
	Action:    actionDecorator(getYuvTransaction),
}

func getYuvTransaction(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 1 {
		return cli.ShowCommandHelp(ctx, "getyuvtransaction")
	}
	return call(ctx, "getyuvtransaction", map[string]string{"txid": args.Get(0)})
}

var listYuvTransactionsCommand = cli.Command{
	Name:      "listyuvtransactions",
	Category:  "Transactions",
	Usage:     "Page through every attached transaction.",
	ArgsUsage: "page",
	Action:    actionDecorator(listYuvTransactions),
}

func listYuvTransactions(ctx *cli.Context) error {
	args := ctx.Args()
	page := uint64(0)
	if len(args) == 1 {
		var err error
		page, err = parseUint64(args.Get(0))
		if err != nil {
			return err
		}
	}
	return call(ctx, "listyuvtransactions", map[string]uint64{"page": page})
}

var isYuvTxOutFrozenCommand = cli.Command{
	Name:      "isyuvtxoutfrozen",
	Category:  "Queries",
	Usage:     "Report whether a transaction output is frozen.",
	ArgsUsage: "txid vout",
	Action:    actionDecorator(isYuvTxOutFrozen),
}

func isYuvTxOutFrozen(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 2 {
		return cli.ShowCommandHelp(ctx, "isyuvtxoutfrozen")
	}
	vout, err := parseUint64(args.Get(1))
	if err != nil {
		return err
	}
	return call(ctx, "isyuvtxoutfrozen", map[string]interface{}{
		"txid": args.Get(0),
		"vout": uint32(vout),
	})
}

var emulateYuvTransactionCommand = cli.Command{
	Name:      "emulateyuvtransaction",
	Category:  "Transactions",
	Usage:     "Dry-run the checker against a proof without submitting it.",
	ArgsUsage: "tx-hex-file",
	Action:    actionDecorator(emulateYuvTransaction),
}

func emulateYuvTransaction(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 1 {
		return cli.ShowCommandHelp(ctx, "emulateyuvtransaction")
	}
	raw, err := ioutil.ReadFile(args.Get(0))
	if err != nil {
		return err
	}
	return call(ctx, "emulateyuvtransaction", map[string]string{"tx_hex": string(raw)})
}

var getChromaInfoCommand = cli.Command{
	Name:      "getchromainfo",
	Category:  "Queries",
	Usage:     "Look up a chroma's announcement, owner, and total supply.",
	ArgsUsage: "chroma-hex",
	Action:    actionDecorator(getChromaInfo),
}

func getChromaInfo(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 1 {
		return cli.ShowCommandHelp(ctx, "getchromainfo")
	}
	return call(ctx, "getchromainfo", map[string]string{"chroma": args.Get(0)})
}
