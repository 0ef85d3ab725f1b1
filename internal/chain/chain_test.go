package chain

import (
	"context"
	"sync"
	"testing"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/storage"
	"github.com/nexus-share/nexus-ledger/pkg/block"
	"github.com/nexus-share/nexus-ledger/pkg/tx"
	"github.com/nexus-share/nexus-ledger/pkg/types"
)

const (
	alice types.Identity = "aaaa1111aaaa1111"
	bob   types.Identity = "bbbb2222bbbb2222"
	carol types.Identity = "cccc3333cccc3333"
)

// testParams keeps difficulty low so mining in tests stays instantaneous.
func testParams(t *testing.T) config.Params {
	t.Helper()
	p := config.DefaultParams()
	p.Difficulty = 1
	return p
}

func testChain(t *testing.T) *Chain {
	t.Helper()
	return New(testParams(t))
}

// endow mints and confirms an endowment for the identity.
func endow(t *testing.T, c *Chain, id types.Identity, amount float64) {
	t.Helper()
	if !c.AddTransaction(tx.New(types.SystemIdentity, id, amount, tx.KindInitialCredit, nil)) {
		t.Fatalf("endowment for %s refused", id)
	}
	if _, err := c.MinePending(context.Background(), id); err != nil {
		t.Fatalf("endowment mine: %v", err)
	}
}

func TestGenesisShape(t *testing.T) {
	c := testChain(t)

	if c.Length() != 1 {
		t.Fatalf("fresh chain length = %d, want 1", c.Length())
	}
	gen := c.Block(0)
	if gen.PrevHash != block.GenesisPrevHash {
		t.Errorf("genesis previous hash = %q, want %q", gen.PrevHash, block.GenesisPrevHash)
	}
	if len(gen.Transactions) != 1 {
		t.Fatalf("genesis carries %d transactions, want 1", len(gen.Transactions))
	}
	g := gen.Transactions[0]
	if g.Kind() != tx.KindGenesis || g.Sender() != types.SystemIdentity ||
		g.Receiver() != types.GenesisIdentity || g.Amount() != 0 {
		t.Errorf("genesis transaction malformed: %s -> %s amount %v kind %s",
			g.Sender(), g.Receiver(), g.Amount(), g.Kind())
	}
	if !c.IsValid() {
		t.Error("fresh chain must be valid")
	}
}

func TestAddTransactionAdmission(t *testing.T) {
	c := testChain(t)

	// Mints are admitted unconditionally.
	if !c.AddTransaction(tx.New(types.SystemIdentity, alice, 10000, tx.KindInitialCredit, nil)) {
		t.Fatal("mint must be admitted unconditionally")
	}

	// Alice's endowment is pending, not confirmed: she cannot spend yet.
	if c.AddTransaction(tx.New(alice, bob, 1, tx.KindTransfer, nil)) {
		t.Fatal("unconfirmed endowment must not be spendable")
	}

	if _, err := c.MinePending(context.Background(), alice); err != nil {
		t.Fatalf("mine: %v", err)
	}
	if !c.AddTransaction(tx.New(alice, bob, 1, tx.KindTransfer, nil)) {
		t.Fatal("confirmed endowment must be spendable")
	}
}

func TestAddTransactionRejectsOverdraft(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 100)

	pendingBefore := c.PendingCount()
	lengthBefore := c.Length()

	if c.AddTransaction(tx.New(alice, bob, 150, tx.KindTransfer, nil)) {
		t.Fatal("overdraft must be refused")
	}
	if c.PendingCount() != pendingBefore || c.Length() != lengthBefore {
		t.Fatal("refused admission must leave pool and chain unchanged")
	}
}

func TestSpendableCountsPendingOutgoing(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 100)

	if !c.AddTransaction(tx.New(alice, bob, 70, tx.KindTransfer, nil)) {
		t.Fatal("first transfer should be admitted")
	}
	// 70 of the 100 is committed to the pool; only 30 remains spendable.
	if got := c.Spendable(alice); got != 30 {
		t.Fatalf("spendable = %v, want 30", got)
	}
	if c.AddTransaction(tx.New(alice, bob, 50, tx.KindTransfer, nil)) {
		t.Fatal("second transfer exceeds spendable and must be refused")
	}
	// Confirmed balance ignores the pool entirely.
	if got := c.Balance(alice); got != 100 {
		t.Fatalf("confirmed balance = %v, want 100", got)
	}
}

func TestMinePendingEmptyPool(t *testing.T) {
	c := testChain(t)
	blk, err := c.MinePending(context.Background(), alice)
	if err != nil {
		t.Fatalf("MinePending: %v", err)
	}
	if blk != nil {
		t.Fatal("empty pool must mine nothing")
	}
	if c.Length() != 1 {
		t.Fatalf("chain length changed to %d on empty mine", c.Length())
	}
}

func TestMinePendingRewardLastAndBalances(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 10000)

	if !c.AddTransaction(tx.New(alice, bob, 25, tx.KindResourceDownload, nil)) {
		t.Fatal("download admission failed")
	}
	blk, err := c.MinePending(context.Background(), carol)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	if err := blk.ValidateReward(); err != nil {
		t.Fatalf("reward placement: %v", err)
	}
	reward := blk.Transactions[len(blk.Transactions)-1]
	if reward.Receiver() != carol {
		t.Errorf("reward receiver = %s, want %s", reward.Receiver(), carol)
	}
	// Base 50 plus the 0.1% fee on the 25-credit download.
	if reward.Amount() != 50.025 {
		t.Errorf("reward amount = %v, want 50.025", reward.Amount())
	}

	if got := c.Balance(alice); got != 10000-25 {
		t.Errorf("alice balance = %v, want %v", got, 10000-25)
	}
	if got := c.Balance(bob); got != 25 {
		t.Errorf("bob balance = %v, want 25", got)
	}
	if got := c.Balance(carol); got != 50.025 {
		t.Errorf("carol balance = %v, want 50.025", got)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pool not cleared: %d pending", c.PendingCount())
	}
}

func TestMinePendingFIFOOrder(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 10000)

	first := tx.New(alice, bob, 1, tx.KindTransfer, nil)
	second := tx.New(alice, bob, 2, tx.KindTransfer, nil)
	third := tx.New(alice, bob, 3, tx.KindTransfer, nil)
	for _, tr := range []*tx.Transaction{first, second, third} {
		if !c.AddTransaction(tr) {
			t.Fatal("admission failed")
		}
	}

	blk, err := c.MinePending(context.Background(), carol)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	want := []*tx.Transaction{first, second, third}
	for i, tr := range want {
		if blk.Transactions[i].Fingerprint() != tr.Fingerprint() {
			t.Fatalf("position %d: pool order not preserved", i)
		}
	}
	if blk.Transactions[len(blk.Transactions)-1].Kind() != tx.KindMiningReward {
		t.Fatal("reward must be last")
	}
}

func TestCurrentRewardHalving(t *testing.T) {
	p := testParams(t)
	p.HalvingInterval = 3
	c := New(p)

	if got := c.CurrentReward(); got != 50 {
		t.Fatalf("reward before halving = %v, want 50", got)
	}

	// Grow the chain to exactly one halving interval.
	for c.Length() < p.HalvingInterval {
		if !c.AddTransaction(tx.New(types.SystemIdentity, alice, 1, tx.KindInitialCredit, nil)) {
			t.Fatal("mint refused")
		}
		if _, err := c.MinePending(context.Background(), alice); err != nil {
			t.Fatalf("mine: %v", err)
		}
	}

	if got := c.CurrentReward(); got != 25 {
		t.Fatalf("reward at one interval = %v, want 25", got)
	}
}

func TestIsValidDetectsTamper(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 10000)
	endow(t, c, bob, 10000)

	if !c.IsValid() {
		t.Fatal("untouched chain must be valid")
	}

	// Mutate a non-tip block in place without re-mining.
	c.Block(1).Timestamp++
	if c.IsValid() {
		t.Fatal("tampered block must invalidate the chain")
	}
}

func TestConservation(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 10000)
	endow(t, c, bob, 10000)
	if !c.AddTransaction(tx.New(alice, bob, 123, tx.KindTransfer, nil)) {
		t.Fatal("transfer refused")
	}
	if _, err := c.MinePending(context.Background(), carol); err != nil {
		t.Fatalf("mine: %v", err)
	}

	// Sum of receipts minus non-system sends equals the sum of balances.
	var receipts, sends, balances float64
	seen := map[types.Identity]bool{}
	for _, blk := range c.Blocks() {
		for _, tr := range blk.Transactions {
			receipts += tr.Amount()
			if !tr.IsMint() {
				sends += tr.Amount()
			}
			seen[tr.Receiver()] = true
			seen[tr.Sender()] = true
		}
	}
	for id := range seen {
		if !id.IsSystem() {
			balances += c.Balance(id)
		}
	}
	if receipts-sends != balances {
		t.Fatalf("conservation broken: receipts-sends = %v, balances = %v",
			receipts-sends, balances)
	}
}

func TestConcurrentAdmissionAndMining(t *testing.T) {
	c := testChain(t)
	endow(t, c, alice, 10000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.AddTransaction(tx.New(types.SystemIdentity, bob, 1, tx.KindInitialCredit, nil))
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := c.MinePending(context.Background(), carol); err != nil {
					t.Errorf("mine: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Drain whatever is left, then the whole history must still verify.
	if _, err := c.MinePending(context.Background(), carol); err != nil {
		t.Fatalf("final mine: %v", err)
	}
	if !c.IsValid() {
		t.Fatal("chain invalid after concurrent use")
	}
	if got := c.Balance(bob); got != 160 {
		t.Fatalf("bob balance = %v, want 160", got)
	}
}

func TestStoreReload(t *testing.T) {
	db := storage.NewMemory()
	params := testParams(t)

	c, err := NewWithStore(params, NewStore(db))
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	endow(t, c, alice, 10000)
	if !c.AddTransaction(tx.New(alice, bob, 40, tx.KindTransfer, nil)) {
		t.Fatal("transfer refused")
	}
	if _, err := c.MinePending(context.Background(), carol); err != nil {
		t.Fatalf("mine: %v", err)
	}
	tip := c.TipHash()

	reloaded, err := NewWithStore(params, NewStore(db))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Length() != c.Length() {
		t.Fatalf("reloaded length = %d, want %d", reloaded.Length(), c.Length())
	}
	if reloaded.TipHash() != tip {
		t.Fatal("reloaded tip hash differs")
	}
	if got := reloaded.Balance(alice); got != c.Balance(alice) {
		t.Fatalf("reloaded balance = %v, want %v", got, c.Balance(alice))
	}
	if !reloaded.IsValid() {
		t.Fatal("reloaded chain must be valid")
	}
}

func TestStoreReloadRejectsCorruption(t *testing.T) {
	db := storage.NewMemory()
	params := testParams(t)

	c, err := NewWithStore(params, NewStore(db))
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	endow(t, c, alice, 10000)

	// Corrupt the persisted tip: a flipped amount must fail decoding or
	// verification on reload.
	key := blockKey(1)
	raw, err := db.Get(key)
	if err != nil {
		t.Fatalf("read persisted block: %v", err)
	}
	corrupted := []byte(string(raw))
	for i := range corrupted {
		if corrupted[i] == '1' {
			corrupted[i] = '7'
			break
		}
	}
	if err := db.Put(key, corrupted); err != nil {
		t.Fatalf("write corrupted block: %v", err)
	}

	if _, err := NewWithStore(params, NewStore(db)); err == nil {
		t.Fatal("corrupted snapshot must be rejected on reload")
	}
}
