// Command pixeld runs the node: it parses just enough flags to locate
// the Bitcoin RPC backend and the local data directory, then hands
// everything else to pixeld.NewNode's defaults (spec.md §1's non-goals
// keep full config-file/flag parsing out of the config package itself;
// this binary is the "calling CLI" that package expects).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pixelnode/pixeld"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/checker"
	"github.com/pixelnode/pixeld/config"
	"github.com/pixelnode/pixeld/confirmation"
	"github.com/pixelnode/pixeld/controller"
	"github.com/pixelnode/pixeld/graph"
	"github.com/pixelnode/pixeld/indexer/blockloader"
	"github.com/pixelnode/pixeld/indexer/subindexer"
	"github.com/pixelnode/pixeld/internal/build"
	"github.com/pixelnode/pixeld/p2p"
	"github.com/pixelnode/pixeld/rpc"
	"github.com/pixelnode/pixeld/store/boltstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dataDir     = flag.String("datadir", "./pixeld-data", "directory for the node's database and logs")
		rpcHost     = flag.String("rpchost", "127.0.0.1:8334", "Bitcoin RPC host:port")
		rpcUser     = flag.String("rpcuser", "", "Bitcoin RPC username")
		rpcPass     = flag.String("rpcpass", "", "Bitcoin RPC password")
		listenAddr  = flag.String("rpclisten", "127.0.0.1:8432", "JSON-RPC 2.0 HTTP listen address")
		startHeight = flag.Int("startheight", 0, "block height to begin indexing from")
		regtest     = flag.Bool("regtest", false, "use the protocol's regtest network magic")
		debugLevel  = flag.String("debuglevel", "info", "log level for every subsystem")
	)
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	root := build.NewRotatingLogWriter()
	if err := root.InitLogRotator(*dataDir+"/pixeld.log", 10); err != nil {
		return fmt.Errorf("init log rotator: %w", err)
	}
	pixeld.SetupLoggers(root, map[string]func(btclog.Logger){
		"BLKL": blockloader.UseLogger,
		"SIDX": subindexer.UseLogger,
		"CNFT": confirmation.UseLogger,
		"CHKR": checker.UseLogger,
		"GRPH": graph.UseLogger,
		"CTRL": controller.UseLogger,
		"PEER": p2p.UseLogger,
		"RPCS": rpc.UseLogger,
	})
	root.SetLevels(levelFromString(*debugLevel))

	source, err := chainrpc.New(chainrpc.Config{
		Host:         *rpcHost,
		User:         *rpcUser,
		Pass:         *rpcPass,
		HTTPPostMode: true,
		DisableTLS:   true,
	})
	if err != nil {
		return fmt.Errorf("connect to bitcoin rpc: %w", err)
	}

	kv, err := boltstore.Open(*dataDir + "/pixeld.db")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	params := &chaincfg.MainNetParams
	cfg := config.NodeConfig{
		NetParams:    params,
		Indexer:      config.DefaultIndexerConfig(params),
		Confirmation: config.DefaultConfirmationConfig(),
		Checker:      config.DefaultCheckerConfig(),
		Graph:        config.DefaultGraphConfig(),
		Controller:   config.DefaultControllerConfig(),
		P2P:          config.DefaultP2PConfig(params),
		RPC:          config.DefaultRPCConfig(),
		Storage:      config.StorageConfig{DataDir: *dataDir},
	}
	cfg.Indexer.StartHeight = int32(*startHeight)
	cfg.RPC.ListenAddr = *listenAddr
	if *regtest {
		cfg.P2P.NetParams = &chaincfg.RegressionNetParams
	}

	node, err := pixeld.NewNode(cfg, source, kv)
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return node.Run(ctx)
}

func levelFromString(s string) btclog.Level {
	level, ok := btclog.LevelFromString(s)
	if !ok {
		return btclog.LevelInfo
	}
	return level
}
