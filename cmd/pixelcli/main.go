// Command pixelcli is a thin JSON-RPC 2.0 client for a running pixeld
// node (spec.md §6): each subcommand below is a single RPC call, printed
// back as indented JSON.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "pixelcli"
	app.Usage = "command line tool for pixeld"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: "127.0.0.1:8432",
			Usage: "host:port of pixeld's JSON-RPC listener",
		},
	}
	app.Commands = []cli.Command{
		sendYuvTransactionCommand,
		getYuvTransactionCommand,
		listYuvTransactionsCommand,
		isYuvTxOutFrozenCommand,
		emulateYuvTransactionCommand,
		getChromaInfoCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// actionDecorator wraps a cli.ActionFunc so every subcommand can just
// return an error instead of calling os.Exit itself.
func actionDecorator(f func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		if err := f(c); err != nil {
			return err
		}
		return nil
	}
}
