// Package node provides a reusable ledger node that can be embedded in any
// binary (daemon, tooling, tests).
package node

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/api"
	"github.com/nexus-share/nexus-ledger/internal/auth"
	nlog "github.com/nexus-share/nexus-ledger/internal/log"
	"github.com/nexus-share/nexus-ledger/internal/storage"
	"github.com/nexus-share/nexus-ledger/internal/system"
)

// Node is a fully-initialized ledger node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db        storage.DB // nil when persistence is off
	sys       *system.System
	accounts  *auth.Store
	apiServer *api.Server
}

// New creates and initializes a node: logger, storage, ledger system,
// credential store, and API server. Background serving starts with Start().
func New(cfg *config.Config) (*Node, error) {
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = logsDir + "/nexus.log"
	}
	if err := nlog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := nlog.WithComponent("node")

	logger.Info().
		Float64("initial_credit", cfg.Params.InitialCredit).
		Int("difficulty", cfg.Params.Difficulty).
		Bool("persist", cfg.Persist).
		Msg("Starting Nexus Ledger Node")

	n := &Node{cfg: cfg, logger: logger}

	var err error
	if cfg.Persist {
		db, err := storage.NewBadger(cfg.ChainDataDir())
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", cfg.ChainDataDir(), err)
		}
		n.db = db
		n.sys, err = system.NewWithStore(cfg.Params, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize ledger: %w", err)
		}
		logger.Info().Str("path", cfg.ChainDataDir()).Msg("Database opened")
	} else {
		n.sys = system.New(cfg.Params)
	}

	n.accounts, err = auth.NewStore()
	if err != nil {
		n.closeDB()
		return nil, fmt.Errorf("initialize credential store: %w", err)
	}

	if cfg.API.Enabled {
		addr := net.JoinHostPort(cfg.API.Addr, strconv.Itoa(cfg.API.Port))
		n.apiServer = api.New(addr, n.sys, n.accounts, cfg.API)
	}

	info := n.sys.GetBlockchainInfo()
	logger.Info().
		Int("chain_length", info.ChainLength).
		Int("pending", info.PendingTransactions).
		Bool("is_valid", info.IsValid).
		Msg("Ledger ready")

	return n, nil
}

// System exposes the ledger facade for embedding binaries.
func (n *Node) System() *system.System {
	return n.sys
}

// Start begins serving the API (when enabled).
func (n *Node) Start() error {
	if n.apiServer == nil {
		n.logger.Warn().Msg("API disabled, node is query-only")
		return nil
	}
	if err := n.apiServer.Start(); err != nil {
		return err
	}
	n.logger.Info().Str("addr", n.apiServer.Addr()).Msg("API server listening")
	return nil
}

// Stop shuts the node down: API first, then storage.
func (n *Node) Stop() {
	if n.apiServer != nil {
		if err := n.apiServer.Stop(); err != nil {
			n.logger.Error().Err(err).Msg("API server shutdown")
		}
	}
	n.closeDB()
	n.logger.Info().Msg("Node stopped")
}

func (n *Node) closeDB() {
	if n.db == nil {
		return
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("closing database")
	}
	n.db = nil
}
