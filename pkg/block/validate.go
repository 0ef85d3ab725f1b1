package block

import (
	"errors"
	"fmt"

	"github.com/nexus-share/nexus-ledger/pkg/tx"
)

// Validation errors.
var (
	ErrHashMismatch     = errors.New("stored hash does not match recomputation")
	ErrInsufficientWork = errors.New("hash does not meet difficulty target")
	ErrNoTransactions   = errors.New("block has no transactions")
	ErrBadFingerprint   = errors.New("transaction fingerprint does not verify")
	ErrBadReward        = errors.New("mined block must end with exactly one mining reward")
)

// Validate checks the block's internal consistency: every transaction
// fingerprint verifies, the stored hash matches recomputation, and the hash
// satisfies the block's difficulty. Chain linkage is the chain's concern.
func (b *Block) Validate() error {
	if len(b.Transactions) == 0 {
		return ErrNoTransactions
	}
	for i, t := range b.Transactions {
		if !t.Verify() {
			return fmt.Errorf("tx %d: %w", i, ErrBadFingerprint)
		}
	}
	if got := b.ComputeHash(); got != b.Hash {
		return fmt.Errorf("%w: stored %s, computed %s", ErrHashMismatch, b.Hash, got)
	}
	if !b.MeetsDifficulty() {
		return fmt.Errorf("%w: hash %s, need %d leading zeros", ErrInsufficientWork, b.Hash, b.Difficulty)
	}
	return nil
}

// ValidateReward checks the reward placement rule for mined blocks: exactly
// one mining_reward transaction, appended last, minted by the system sender.
func (b *Block) ValidateReward() error {
	if len(b.Transactions) == 0 {
		return ErrNoTransactions
	}
	rewards := 0
	for _, t := range b.Transactions {
		if t.Kind() == tx.KindMiningReward {
			rewards++
		}
	}
	last := b.Transactions[len(b.Transactions)-1]
	if rewards != 1 || last.Kind() != tx.KindMiningReward || !last.IsMint() {
		return ErrBadReward
	}
	return nil
}
