// Package config defines the plain configuration structs used to wire up a
// pixeld node. It deliberately stops at type definitions: config-file
// loading and environment handling are out of scope for this package;
// cmd/pixeld populates these structs' fields directly from its own small
// flag set rather than adding a file/env layer in front of them.
package config

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

// Default timing and sizing parameters. Named after the spec sections that
// define them.
const (
	// DefaultConfirmationDepth is N in spec §2.4: the number of blocks a
	// transaction must be buried under before it is considered confirmed.
	DefaultConfirmationDepth = 6

	// DefaultMaxConfirmationTime bounds how long the confirmation tracker
	// waits for a mined txid to reach depth before evicting it (spec §4.5
	// clean-up tick).
	DefaultMaxConfirmationTime = 24 * time.Hour

	// DefaultChunkSize is the block loader's fetch chunk size (spec §4.3).
	DefaultChunkSize = 100

	// DefaultWorkerCount is the block loader's and checker's default
	// worker-pool size.
	DefaultWorkerCount = 8

	// DefaultEventBusCapacity is CheckerConfig.QueueCapacity's default. The
	// event bus does not read it: its queues are sized by
	// eventbus.DefaultSubscriberCapacity, which has the same value.
	DefaultEventBusCapacity = 1000

	// DefaultGraphWaitThreshold bounds how long the graph builder holds a
	// child waiting on a missing parent before discarding it (spec §4.7).
	DefaultGraphWaitThreshold = 10 * time.Minute

	// DefaultInvSharingInterval is how often the controller broadcasts
	// recent attached txids to peers (spec §4.8).
	DefaultInvSharingInterval = 30 * time.Second

	// DefaultMaxInvSize bounds a single Inv broadcast (spec §4.8).
	DefaultMaxInvSize = 500

	// DefaultInventoryCapacity is ControllerConfig.InventoryCapacity's
	// default. The controller does not read that field: its stored
	// inventory is trimmed to MaxInvSize on every push.
	DefaultInventoryCapacity = 50000

	// DefaultRPCTimeout is IndexerConfig.RPCTimeout's default. No RPC call
	// in this module is bounded by it (see IndexerConfig.RPCTimeout).
	DefaultRPCTimeout = 30 * time.Second

	// DefaultShutdownTimeout is ControllerConfig.ShutdownTimeout's default.
	// Nothing in this module reads that field, so it does not bound
	// shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxOutbound and DefaultMaxInbound bound the p2p peer slots
	// (spec §4.9).
	DefaultMaxOutbound = 8
	DefaultMaxInbound  = 117

	// DefaultBanDuration is how long a banned peer's address is
	// suppressed from the address book (spec §4.9).
	DefaultBanDuration = 24 * time.Hour

	// DefaultPingInterval and DefaultPingTimeout govern p2p keepalive.
	DefaultPingInterval = 2 * time.Minute
	DefaultPingTimeout  = 30 * time.Second

	// DefaultMaxRequestBytes bounds a single JSON-RPC request body (spec
	// §6).
	DefaultMaxRequestBytes = 32 * 1024 * 1024

	// DefaultMaxArrayLen bounds array-valued RPC params such as
	// providelistyuvproofs / getlistyuvtransactions (spec §6).
	DefaultMaxArrayLen = 10000

	// DefaultInvRecentWindow is how long a peer's prior Inv announcement
	// remains valid grounds for answering that peer's GetData (spec
	// §4.9, Request/response discipline).
	DefaultInvRecentWindow = 10 * time.Minute
)

// IndexerConfig configures the block loader and sub-indexers (spec §4.3,
// §4.4), mirroring original_source/crates/indexers/src/params.rs's
// per-network split.
type IndexerConfig struct {
	NetParams *chaincfg.Params

	// StartHeight is the height the block loader resumes from on
	// startup (or after a Reorganization sets a new indexing height).
	StartHeight int32

	ChunkSize   int
	WorkerCount int

	// ConfirmationDepth is how many blocks back from the chain tip the
	// loader stops at (spec §4.3 step 1).
	ConfirmationDepth int32

	// PollInterval is how often the loader checks for a new tip once it
	// has caught up.
	PollInterval time.Duration

	// RPCTimeout is carried here but not passed to chainrpc or the block
	// loader, so GetBlock/GetBlockHash calls have no timeout of their own.
	RPCTimeout time.Duration

	// RateLimitBackoff is how long a worker sleeps after the Bitcoin RPC
	// reports a rate-limit error (spec §4.3 step 4).
	RateLimitBackoff time.Duration

	// MaxRetries is not read by the node: the block loader retries a failed
	// fetch until it succeeds or its context is cancelled, and a failed
	// loader run is restarted after PollInterval, both without a limit.
	MaxRetries int
}

// DefaultIndexerConfig returns sane defaults for mainnet.
func DefaultIndexerConfig(params *chaincfg.Params) IndexerConfig {
	return IndexerConfig{
		NetParams:         params,
		ChunkSize:         DefaultChunkSize,
		WorkerCount:       DefaultWorkerCount,
		ConfirmationDepth: DefaultConfirmationDepth,
		PollInterval:      10 * time.Second,
		RPCTimeout:        DefaultRPCTimeout,
		RateLimitBackoff:  5 * time.Second,
		MaxRetries:        10,
	}
}

// ConfirmationConfig configures the confirmation tracker (spec §4.5).
type ConfirmationConfig struct {
	Depth              int
	MaxConfirmationTime time.Duration
	CleanupInterval     time.Duration
}

// DefaultConfirmationConfig returns sane defaults.
func DefaultConfirmationConfig() ConfirmationConfig {
	return ConfirmationConfig{
		Depth:               DefaultConfirmationDepth,
		MaxConfirmationTime: DefaultMaxConfirmationTime,
		CleanupInterval:     5 * time.Minute,
	}
}

// CheckerConfig configures the transaction checker worker pool (spec §4.6).
type CheckerConfig struct {
	WorkerCount   int
	QueueCapacity int
}

// DefaultCheckerConfig returns sane defaults.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		WorkerCount:   DefaultWorkerCount,
		QueueCapacity: DefaultEventBusCapacity,
	}
}

// GraphConfig configures the graph builder / attach engine (spec §4.7).
type GraphConfig struct {
	WaitThreshold time.Duration
}

// DefaultGraphConfig returns sane defaults.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{WaitThreshold: DefaultGraphWaitThreshold}
}

// ControllerConfig configures the controller (spec §4.8).
type ControllerConfig struct {
	InvSharingInterval time.Duration
	MaxInvSize         int
	InventoryCapacity  int
	ShutdownTimeout    time.Duration
}

// DefaultControllerConfig returns sane defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		InvSharingInterval: DefaultInvSharingInterval,
		MaxInvSize:         DefaultMaxInvSize,
		InventoryCapacity:  DefaultInventoryCapacity,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
}

// P2PConfig configures the p2p layer (spec §4.9).
type P2PConfig struct {
	NetParams *chaincfg.Params

	ListenAddrs []string
	BootNodes   []string
	DNSSeeds    []string

	MaxOutbound int
	MaxInbound  int

	BanDuration   time.Duration
	PingInterval  time.Duration
	PingTimeout   time.Duration
	InvRecentWindow time.Duration

	// CustomNetworkMagic overrides NetParams.Net when the node is run on
	// the protocol's dedicated custom network (spec §6, P2P wire).
	CustomNetworkMagic *uint32
}

// DefaultP2PConfig returns sane defaults for mainnet.
func DefaultP2PConfig(params *chaincfg.Params) P2PConfig {
	return P2PConfig{
		NetParams:       params,
		MaxOutbound:     DefaultMaxOutbound,
		MaxInbound:      DefaultMaxInbound,
		BanDuration:     DefaultBanDuration,
		PingInterval:    DefaultPingInterval,
		PingTimeout:     DefaultPingTimeout,
		InvRecentWindow: DefaultInvRecentWindow,
	}
}

// RPCConfig configures the JSON-RPC 2.0 HTTP surface (spec §6).
type RPCConfig struct {
	ListenAddr      string
	MaxRequestBytes int64
	MaxArrayLen     int
}

// DefaultRPCConfig returns sane defaults.
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		ListenAddr:      "127.0.0.1:8432",
		MaxRequestBytes: DefaultMaxRequestBytes,
		MaxArrayLen:     DefaultMaxArrayLen,
	}
}

// StorageConfig configures the storage backend (spec §6, Storage layout).
type StorageConfig struct {
	// DataDir is where the bbolt backend keeps its file. Ignored by the
	// in-memory backend used in tests.
	DataDir string
}

// NodeConfig aggregates every subsystem's configuration, mirroring the
// original Rust implementation's apps/node/src/config/mod.rs split
// (bnode/controller/indexer/p2p/storage) while remaining pure data, per the
// package doc comment above.
type NodeConfig struct {
	NetParams *chaincfg.Params

	Indexer      IndexerConfig
	Confirmation ConfirmationConfig
	Checker      CheckerConfig
	Graph        GraphConfig
	Controller   ControllerConfig
	P2P          P2PConfig
	RPC          RPCConfig
	Storage      StorageConfig
}
