// Package chain implements the append-only ledger: the block sequence, the
// pending transaction pool, proof-of-work commits, and balance queries.
package chain

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/consensus"
	"github.com/nexus-share/nexus-ledger/internal/log"
	"github.com/nexus-share/nexus-ledger/pkg/block"
	"github.com/nexus-share/nexus-ledger/pkg/tx"
	"github.com/nexus-share/nexus-ledger/pkg/types"
)

// Info is the blockchain-info document served to clients.
type Info struct {
	ChainLength         int     `json:"chain_length"`
	PendingTransactions int     `json:"pending_transactions"`
	CurrentDifficulty   int     `json:"current_difficulty"`
	CurrentMiningReward float64 `json:"current_mining_reward"`
	IsValid             bool    `json:"is_valid"`
}

// Chain is the process-wide ledger. A single mutex guards the block
// sequence, the pending pool, and the balance cache; proof-of-work runs
// outside it (see MinePending).
type Chain struct {
	mu      sync.Mutex
	params  config.Params
	engine  *consensus.PoW
	blocks  []*block.Block
	pending []*tx.Transaction

	// balances caches confirmed balances per identity, maintained on every
	// block commit. Full replay is only needed when reloading from disk.
	balances map[types.Identity]float64

	store  *Store // nil = in-memory only
	logger zerolog.Logger
}

// New creates a fresh in-memory chain holding only the pre-mined genesis
// block (system mints nothing: amount 0 to the reserved genesis receiver).
func New(params config.Params) *Chain {
	c := &Chain{
		params:   params,
		engine:   consensus.NewPoW(),
		balances: make(map[types.Identity]float64),
		logger:   log.Chain,
	}
	c.appendLocked(genesisBlock())
	return c
}

// NewWithStore creates a chain written through to db. An existing snapshot
// is reloaded and fully re-verified (hash recomputation, linkage,
// difficulty) before the chain serves anything.
func NewWithStore(params config.Params, store *Store) (*Chain, error) {
	c := &Chain{
		params:   params,
		engine:   consensus.NewPoW(),
		balances: make(map[types.Identity]float64),
		store:    store,
		logger:   log.Chain,
	}

	blocks, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load chain snapshot: %w", err)
	}
	if len(blocks) == 0 {
		c.appendLocked(genesisBlock())
		if err := store.PutBlock(c.blocks[0]); err != nil {
			return nil, fmt.Errorf("persist genesis: %w", err)
		}
		return c, nil
	}

	if err := verifyChain(blocks); err != nil {
		return nil, fmt.Errorf("chain snapshot corrupt: %w", err)
	}
	for _, blk := range blocks {
		c.appendLocked(blk)
	}
	c.logger.Info().Int("blocks", len(blocks)).Msg("chain reloaded from snapshot")
	return c, nil
}

// genesisBlock builds the index-0 block: one zero-amount genesis transaction
// from the system sender to the reserved receiver, previous hash "0".
func genesisBlock() *block.Block {
	gen := tx.New(types.SystemIdentity, types.GenesisIdentity, 0, tx.KindGenesis, nil)
	return block.New(0, []*tx.Transaction{gen}, block.GenesisPrevHash, 0)
}

// verifyChain checks a reloaded block sequence: the genesis hash recomputes,
// and every later block validates and links to its predecessor.
func verifyChain(blocks []*block.Block) error {
	if blocks[0].Index != 0 || blocks[0].PrevHash != block.GenesisPrevHash {
		return fmt.Errorf("block 0 is not a genesis block")
	}
	if blocks[0].ComputeHash() != blocks[0].Hash {
		return fmt.Errorf("genesis hash does not recompute")
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Index != uint64(i) {
			return fmt.Errorf("block %d carries index %d", i, blocks[i].Index)
		}
		if err := blocks[i].Validate(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if blocks[i].PrevHash != blocks[i-1].Hash {
			return fmt.Errorf("block %d does not link to block %d", i, i-1)
		}
	}
	return nil
}

// appendLocked appends a block and folds its transactions into the balance
// cache. Caller holds the lock (or is the constructor).
func (c *Chain) appendLocked(blk *block.Block) {
	c.blocks = append(c.blocks, blk)
	for _, t := range blk.Transactions {
		c.balances[t.Receiver()] += t.Amount()
		if !t.IsMint() {
			c.balances[t.Sender()] -= t.Amount()
		}
	}
}

// AddTransaction admits a transaction to the pending pool. Mint
// transactions (sender "0") are admitted unconditionally. Anything else is
// admitted only if the sender can still cover the amount: confirmed balance
// minus what the sender already has pending. Failure is in-band, not an
// error.
func (c *Chain) AddTransaction(t *tx.Transaction) bool {
	if t == nil || !t.Kind().Valid() || t.Amount() < 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !t.IsMint() {
		if c.spendableLocked(t.Sender()) < t.Amount() {
			c.logger.Debug().
				Str("sender", string(t.Sender())).
				Float64("amount", t.Amount()).
				Msg("transaction refused: insufficient spendable balance")
			return false
		}
	}

	c.pending = append(c.pending, t)
	c.logger.Debug().
		Str("kind", string(t.Kind())).
		Str("fingerprint", t.Fingerprint().String()).
		Int("pool", len(c.pending)).
		Msg("transaction admitted")
	return true
}

// spendableLocked is the confirmed balance minus pending outgoing amounts.
func (c *Chain) spendableLocked(id types.Identity) float64 {
	spendable := c.balances[id]
	for _, t := range c.pending {
		if t.Sender() == id && !t.IsMint() {
			spendable -= t.Amount()
		}
	}
	return spendable
}

// Balance returns the confirmed balance of an identity. Pending
// transactions do not count.
func (c *Chain) Balance(id types.Identity) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[id]
}

// Spendable returns the balance an identity can still commit to new
// transactions: confirmed balance minus pending outgoing amounts.
func (c *Chain) Spendable(id types.Identity) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spendableLocked(id)
}

// CurrentReward returns the base mining reward after halvings:
// base / 2^(chain_length / halving_interval).
func (c *Chain) CurrentReward() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRewardLocked()
}

func (c *Chain) currentRewardLocked() float64 {
	halvings := len(c.blocks) / c.params.HalvingInterval
	return c.params.BaseReward / math.Pow(2, float64(halvings))
}

// MinePending assembles the pending pool into a block, mines it, and
// appends it. Returns nil (no error) when the pool is empty.
//
// The lock is held only for the snapshot and commit phases; the
// proof-of-work loop runs unlocked. The commit is optimistic: if another
// block was appended while mining, the sealed block is discarded and the
// whole cycle retries with a fresh snapshot.
func (c *Chain) MinePending(ctx context.Context, miner types.Identity) (*block.Block, error) {
	for {
		blk, taken := c.buildCandidate(miner)
		if blk == nil {
			return nil, nil
		}

		if err := c.engine.Seal(ctx, blk); err != nil {
			return nil, err
		}

		c.mu.Lock()
		tip := c.blocks[len(c.blocks)-1]
		if blk.PrevHash != tip.Hash {
			// Someone else won the race. Retry on a fresh snapshot.
			c.mu.Unlock()
			c.logger.Debug().Uint64("index", blk.Index).Msg("stale candidate discarded, retrying")
			continue
		}

		c.appendLocked(blk)
		c.pending = c.pending[taken:]
		if c.store != nil {
			if err := c.store.PutBlock(blk); err != nil {
				c.mu.Unlock()
				return nil, fmt.Errorf("persist block %d: %w", blk.Index, err)
			}
		}
		c.mu.Unlock()

		c.logger.Info().
			Uint64("index", blk.Index).
			Str("hash", blk.Hash).
			Str("miner", string(miner)).
			Int("txs", len(blk.Transactions)).
			Msg("block mined")
		return blk, nil
	}
}

// buildCandidate snapshots the pool under the lock and assembles an unsealed
// candidate block: the pool transactions in FIFO order, then one mining
// reward of the current base reward plus the pool's aggregated fees.
// Returns (nil, 0) when the pool is empty.
func (c *Chain) buildCandidate(miner types.Identity) (*block.Block, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil, 0
	}

	taken := len(c.pending)
	txs := make([]*tx.Transaction, taken, taken+1)
	copy(txs, c.pending)

	var fees float64
	for _, t := range txs {
		fees += t.Fee(c.params.FeeRate)
	}

	reward := tx.New(types.SystemIdentity, miner, c.currentRewardLocked()+fees, tx.KindMiningReward, nil)
	txs = append(txs, reward)

	tip := c.blocks[len(c.blocks)-1]
	blk := block.New(uint64(len(c.blocks)), txs, tip.Hash, c.params.Difficulty)
	return blk, taken
}

// IsValid re-verifies the whole chain: for every block after genesis the
// stored hash recomputes, the difficulty prefix holds, and the block links
// to its predecessor.
func (c *Chain) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return verifyChain(c.blocks) == nil
}

// Length returns the number of blocks in the chain.
func (c *Chain) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// PendingCount returns the number of transactions awaiting inclusion.
func (c *Chain) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// TipHash returns the hash of the newest block.
func (c *Chain) TipHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1].Hash
}

// Block returns the block at the given index, or nil.
func (c *Chain) Block(index uint64) *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= uint64(len(c.blocks)) {
		return nil
	}
	return c.blocks[index]
}

// Blocks returns a snapshot of the block sequence. Blocks are shared, not
// copied; they are immutable once committed.
func (c *Chain) Blocks() []*block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Info returns the blockchain-info document.
func (c *Chain) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		ChainLength:         len(c.blocks),
		PendingTransactions: len(c.pending),
		CurrentDifficulty:   c.params.Difficulty,
		CurrentMiningReward: c.currentRewardLocked(),
		IsValid:             verifyChain(c.blocks) == nil,
	}
}
