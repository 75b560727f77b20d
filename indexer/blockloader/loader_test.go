package blockloader

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/stretchr/testify/require"
)

func TestRunDeliversContiguousBlocks(t *testing.T) {
	f := chainrpc.NewFake()
	for h := int32(1); h <= 10; h++ {
		f.PutBlock(h, &wire.MsgBlock{Header: wire.BlockHeader{Nonce: uint32(h)}})
	}

	l := New(Config{Source: f, ChunkSize: 4, WorkerCount: 3, Confirmations: 1})
	ch, err := l.Run(context.Background(), 1)
	require.NoError(t, err)

	var heights []int32
	finished := false
	for res := range ch {
		for _, b := range res.Blocks {
			heights = append(heights, b.Height)
		}
		if res.Finished {
			finished = true
		}
	}

	require.True(t, finished)
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, heights)
}

func TestRunRespectsConfirmationDepth(t *testing.T) {
	f := chainrpc.NewFake()
	for h := int32(1); h <= 10; h++ {
		f.PutBlock(h, &wire.MsgBlock{})
	}

	l := New(Config{Source: f, ChunkSize: 4, WorkerCount: 2, Confirmations: 3})
	ch, err := l.Run(context.Background(), 1)
	require.NoError(t, err)

	var heights []int32
	for res := range ch {
		for _, b := range res.Blocks {
			heights = append(heights, b.Height)
		}
	}

	// target = best(10) - (confirmations(3) - 1) = 8
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, heights)
}

func TestRunNoWorkWhenStartPastTarget(t *testing.T) {
	f := chainrpc.NewFake()
	f.PutBlock(1, &wire.MsgBlock{})

	l := New(Config{Source: f, ChunkSize: 4, WorkerCount: 2, Confirmations: 1})
	ch, err := l.Run(context.Background(), 5)
	require.NoError(t, err)

	res := <-ch
	require.True(t, res.Finished)
	require.Empty(t, res.Blocks)

	_, open := <-ch
	require.False(t, open)
}

func TestRunCancellation(t *testing.T) {
	f := chainrpc.NewFake()
	f.PutBlock(1, &wire.MsgBlock{})
	// Height 2 is deliberately never populated, so fetching it retries
	// forever until the context is cancelled.
	f.BestHeightVal = 2

	l := New(Config{
		Source:        f,
		ChunkSize:     2,
		WorkerCount:   2,
		Confirmations: 1,
		RetryBackoff:  time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := l.Run(ctx, 1)
	require.NoError(t, err)

	time.AfterFunc(20*time.Millisecond, cancel)

	var cancelled bool
	for res := range ch {
		if res.Cancelled {
			cancelled = true
		}
	}
	require.True(t, cancelled)
}
