package node

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nexus-share/nexus-ledger/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = tmpDir
	cfg.Log.File = filepath.Join(tmpDir, "test.log")
	cfg.Log.Level = "error"
	cfg.API.Port = 0 // Use random port to avoid conflicts.
	cfg.Params.Difficulty = 1
	return cfg
}

func TestNodeLifecycle(t *testing.T) {
	cfg := testConfig(t)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if n.System() == nil {
		t.Fatal("System should not be nil")
	}
	info := n.System().GetBlockchainInfo()
	if info.ChainLength != 1 {
		t.Errorf("expected genesis-only chain, got length %d", info.ChainLength)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Stop should not panic or error.
	n.Stop()
}

func TestNodeAPIDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.apiServer != nil {
		t.Error("API server should not exist when disabled")
	}
	if err := n.Start(); err != nil {
		t.Errorf("Start with API disabled: %v", err)
	}
	n.Stop()
}

func TestNodePersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := testConfig(t)
	cfg.Persist = true
	cfg.API.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := n.System().RegisterUser("alice"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := n.System().MineBlock(context.Background(), "alice"); err != nil {
		t.Fatalf("MineBlock: %v", err)
	}
	want, ok := n.System().GetUserBalance("alice")
	if !ok {
		t.Fatal("alice missing before restart")
	}
	n.Stop()

	// Reopen from the same data directory.
	n, err = New(cfg)
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}
	defer n.Stop()

	got, ok := n.System().GetUserBalance("alice")
	if !ok {
		t.Fatal("alice missing after restart")
	}
	if got != want {
		t.Errorf("balance after restart = %v, want %v", got, want)
	}
	if info := n.System().GetBlockchainInfo(); info.ChainLength != 2 {
		t.Errorf("chain length after restart = %d, want 2", info.ChainLength)
	}
	if !n.System().GetBlockchainInfo().IsValid {
		t.Error("reloaded chain should verify")
	}
}
