// Command n3node runs a Neo N3 full node: it loads a protocol/application
// configuration, opens the chain store, and wires the mempool, P2P
// engine, and (if a validator key is unlocked) dBFT consensus together
// into one running process.
package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/n3-go/n3node/pkg/config"
	"github.com/n3-go/n3node/pkg/config/netmode"
	"github.com/n3-go/n3node/pkg/consensus"
	"github.com/n3-go/n3node/pkg/core"
	"github.com/n3-go/n3node/pkg/core/transaction"
	"github.com/n3-go/n3node/pkg/crypto/keys"
	"github.com/n3-go/n3node/pkg/mempool"
	"github.com/n3-go/n3node/pkg/network"
	"github.com/n3-go/n3node/pkg/rpc/ws"
	"github.com/n3-go/n3node/pkg/storage"
	"github.com/n3-go/n3node/pkg/wallet"
)

func main() {
	app := &cli.App{
		Name:    "n3node",
		Usage:   "Neo N3 full node",
		Version: config.Version,
		Commands: []*cli.Command{
			nodeCommand,
			walletCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var networkFlags = []cli.Flag{
	&cli.BoolFlag{Name: "mainnet", Aliases: []string{"m"}, Usage: "use mainnet configuration"},
	&cli.BoolFlag{Name: "testnet", Aliases: []string{"t"}, Usage: "use testnet configuration"},
	&cli.BoolFlag{Name: "privnet", Aliases: []string{"p"}, Usage: "use privnet configuration (default)"},
	&cli.StringFlag{Name: "config-path", Usage: "directory holding protocol.<network>.yml", Value: config.DefaultConfigPath},
	&cli.StringFlag{Name: "config-file", Usage: "exact configuration file, overrides --config-path"},
	&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "force debug-level logging"},
}

func netModeFromFlags(c *cli.Context) netmode.Magic {
	switch {
	case c.Bool("mainnet"):
		return netmode.MainNet
	case c.Bool("testnet"):
		return netmode.TestNet
	default:
		return netmode.PrivNet
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if f := c.String("config-file"); f != "" {
		return config.LoadFile(f, netModeFromFlags(c))
	}
	return config.Load(c.String("config-path"), netModeFromFlags(c))
}

var nodeCommand = &cli.Command{
	Name:  "node",
	Usage: "start the node",
	Flags: networkFlags,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		log, err := config.NewLogger(cfg.ApplicationConfiguration, c.Bool("debug"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer func() { _ = log.Sync() }()

		if err := runNode(c.Context, cfg, log); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	},
}

func openStore(cfg config.ApplicationConfiguration) (storage.Store, error) {
	switch cfg.DBType {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "bolt":
		return storage.NewBoltStore(cfg.DataDirectoryPath)
	case "leveldb":
		return storage.NewLevelDBStore(cfg.DataDirectoryPath)
	default:
		return nil, fmt.Errorf("n3node: unknown DBType %q", cfg.DBType)
	}
}

func runNode(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	protocol := cfg.ProtocolConfiguration
	validators, err := protocol.Validators()
	if err != nil {
		return fmt.Errorf("n3node: %w", err)
	}

	store, err := openStore(cfg.ApplicationConfiguration)
	if err != nil {
		return fmt.Errorf("n3node: opening store: %w", err)
	}

	bc, err := core.NewBlockchain(store, core.Config{
		Magic:                uint32(protocol.Magic),
		ValidatorsCount:      protocol.ValidatorsCount,
		StandbyValidators:    validators,
		MillisecondsPerBlock: uint64(protocol.TimePerBlock.Milliseconds()),
		ExecFeeFactor:        protocol.ExecFeeFactor,
		MaxBlockSystemFee:    protocol.MaxBlockSystemFee,
	})
	if err != nil {
		return fmt.Errorf("n3node: opening chain: %w", err)
	}

	feer := core.NewFeer(bc)

	rpcCfg := cfg.ApplicationConfiguration.RPC
	hub := ws.NewHub(log.Named("ws"), rpcCfg.MaxWebSocketClients, rpcCfg.MaxWebSocketFeeds)
	bc.OnBlock(hub.NotifyBlock)

	mp := mempool.New(protocol.MemPoolSize, feer, &fanoutEvents{
		events: []mempool.Events{&txLogger{log: log.Named("mempool")}, hub},
	})

	var wsServer *http.Server
	if rpcCfg.Enabled && len(rpcCfg.Addresses) > 0 {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		wsServer = &http.Server{Addr: rpcCfg.Addresses[0], Handler: mux}
		go func() {
			if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("websocket server stopped", zap.Error(err))
			}
		}()
	}

	p2pCfg := network.Config{
		Magic:       uint32(protocol.Magic),
		SeedList:    protocol.SeedList,
		UserAgent:   cfg.GenerateUserAgent(),
		MinPeers:    cfg.ApplicationConfiguration.P2P.MinPeers,
		MaxPeers:    cfg.ApplicationConfiguration.P2P.MaxPeers,
		DialTimeout: cfg.ApplicationConfiguration.P2P.DialTimeout,
		Ledger:      bc,
		Mempool:     mp,
		Log:         log.Named("network"),
	}
	if len(cfg.ApplicationConfiguration.P2P.Addresses) > 0 {
		p2pCfg.ListenAddr = cfg.ApplicationConfiguration.P2P.Addresses[0]
	}

	var server *network.Server
	if cfg.ApplicationConfiguration.Consensus.Enabled {
		svc, err := newConsensusService(cfg, bc, mp, validators, log, func(p *consensus.Payload) {
			server.BroadcastConsensusPayload(p)
		})
		if err != nil {
			return fmt.Errorf("n3node: starting consensus: %w", err)
		}
		p2pCfg.Consensus = svc
		server = network.NewServer(p2pCfg)
		svc.Start()
		defer svc.Shutdown()
	} else {
		server = network.NewServer(p2pCfg)
	}

	grace, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	log.Info("starting node",
		zap.Stringer("network", protocol.Magic),
		zap.String("user_agent", p2pCfg.UserAgent))
	err = server.Start(grace)
	server.Shutdown()
	if wsServer != nil {
		_ = wsServer.Close()
	}
	if err != nil && grace.Err() == nil {
		return fmt.Errorf("n3node: %w", err)
	}
	return nil
}

// newConsensusService unlocks the validator wallet named in
// ApplicationConfiguration.Consensus and builds a consensus.Service for
// it, identifying which validator slot the unlocked key occupies.
func newConsensusService(cfg config.Config, bc *core.Blockchain, mp *mempool.Pool,
	validators keys.PublicKeys, log *zap.Logger, broadcast func(*consensus.Payload)) (*consensus.Service, error) {
	uw := cfg.ApplicationConfiguration.Consensus.UnlockWallet
	w, err := wallet.LoadFile(uw.Path)
	if err != nil {
		return nil, err
	}
	acc, err := w.DefaultAccount()
	if err != nil {
		return nil, err
	}
	priv, err := acc.Decrypt(uw.Password)
	if err != nil {
		return nil, err
	}

	myIndex := -1
	myPub := priv.PublicKey().Bytes()
	for i, v := range validators {
		if bytes.Equal(v.Bytes(), myPub) {
			myIndex = i
			break
		}
	}
	if myIndex < 0 {
		return nil, fmt.Errorf("n3node: unlocked account %s is not among the configured validators", acc.Address)
	}

	return consensus.NewService(consensus.Config{
		Logger:          log.Named("consensus"),
		Ledger:          bc,
		Mempool:         mp,
		Key:             priv,
		Validators:      validators,
		MyIndex:         myIndex,
		Magic:           uint32(cfg.ProtocolConfiguration.Magic),
		SecondsPerBlock: cfg.ProtocolConfiguration.TimePerBlock,
		Broadcast:       broadcast,
	})
}

// txLogger implements mempool.Events, logging pool churn; WebSocket
// notification is handled separately by ws.Hub, which fanoutEvents
// feeds alongside it.
type txLogger struct{ log *zap.Logger }

func (l *txLogger) TransactionAdded(tx *transaction.Transaction) {
	l.log.Debug("transaction added to pool", zap.Stringer("hash", tx.Hash()))
}

func (l *txLogger) TransactionRemoved(tx *transaction.Transaction, reason mempool.RemovalReason) {
	l.log.Debug("transaction removed from pool", zap.Stringer("hash", tx.Hash()), zap.Int("reason", int(reason)))
}

// fanoutEvents dispatches mempool.Events callbacks to every registered
// sink, letting pool-churn logging and WebSocket notification coexist
// as independent mempool.New subscribers.
type fanoutEvents struct{ events []mempool.Events }

func (f *fanoutEvents) TransactionAdded(tx *transaction.Transaction) {
	for _, e := range f.events {
		e.TransactionAdded(tx)
	}
}

func (f *fanoutEvents) TransactionRemoved(tx *transaction.Transaction, reason mempool.RemovalReason) {
	for _, e := range f.events {
		e.TransactionRemoved(tx, reason)
	}
}
