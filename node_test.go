package pixeld

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/config"
	"github.com/pixelnode/pixeld/store"
	"github.com/stretchr/testify/require"
)

func testNodeConfig() config.NodeConfig {
	params := &chaincfg.RegressionNetParams
	return config.NodeConfig{
		NetParams:    params,
		Indexer:      config.DefaultIndexerConfig(params),
		Confirmation: config.DefaultConfirmationConfig(),
		Checker:      config.DefaultCheckerConfig(),
		Graph:        config.DefaultGraphConfig(),
		Controller:   config.DefaultControllerConfig(),
		P2P:          config.DefaultP2PConfig(params),
		RPC:          config.DefaultRPCConfig(),
	}
}

func TestNewNodeWiresEverySubsystem(t *testing.T) {
	n, err := NewNode(testNodeConfig(), chainrpc.NewFake(), store.NewMemKV())
	require.NoError(t, err)

	require.NotNil(t, n.Store)
	require.NotNil(t, n.Bus)
	require.NotNil(t, n.Tracker)
	require.NotNil(t, n.Checker)
	require.NotNil(t, n.Graph)
	require.NotNil(t, n.Controller)
	require.NotNil(t, n.P2P)
	require.NotNil(t, n.RPC)
}

func TestRequestResumeCoalescesToLatestHeight(t *testing.T) {
	n, err := NewNode(testNodeConfig(), chainrpc.NewFake(), store.NewMemKV())
	require.NoError(t, err)

	n.requestResume(10)
	n.requestResume(20)

	select {
	case h := <-n.resumeHeight:
		require.Equal(t, int32(20), h)
	default:
		t.Fatal("expected a pending resume height")
	}
}

func TestNodeRunStopsOnContextCancel(t *testing.T) {
	cfg := testNodeConfig()
	cfg.Indexer.PollInterval = time.Millisecond

	n, err := NewNode(cfg, chainrpc.NewFake(), store.NewMemKV())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = n.Run(ctx)
	require.NoError(t, err)
}
