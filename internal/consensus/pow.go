// Package consensus implements the proof-of-work engine.
package consensus

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexus-share/nexus-ledger/pkg/block"
)

// PoW errors.
var (
	ErrNegativeDifficulty = errors.New("difficulty must be >= 0")
	ErrMiningCancelled    = errors.New("mining cancelled")
)

// PoW seals blocks by nonce search until the block hash carries the required
// number of leading hex zeros. The engine holds no mutable state; difficulty
// travels inside each block header.
type PoW struct{}

// NewPoW creates a proof-of-work engine.
func NewPoW() *PoW {
	return &PoW{}
}

// Seal mines the block in place: the nonce is incremented and the hash
// recomputed until it meets the block's difficulty. The loop is CPU-bound
// with no suspension point; cancellation is checked every 65536 iterations
// and reported as ErrMiningCancelled.
func (p *PoW) Seal(ctx context.Context, blk *block.Block) error {
	if blk == nil {
		return fmt.Errorf("nil block")
	}
	if blk.Difficulty < 0 {
		return ErrNegativeDifficulty
	}

	for nonce := uint64(0); ; nonce++ {
		if nonce&0xFFFF == 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrMiningCancelled, ctx.Err())
			default:
			}
		}

		blk.Nonce = nonce
		blk.Hash = blk.ComputeHash()
		if blk.MeetsDifficulty() {
			return nil
		}
		if nonce == ^uint64(0) {
			return fmt.Errorf("nonce space exhausted")
		}
	}
}

// VerifyBlock checks that the block hash recomputes correctly and meets the
// block's stated difficulty.
func (p *PoW) VerifyBlock(blk *block.Block) error {
	if blk == nil {
		return fmt.Errorf("nil block")
	}
	return blk.Validate()
}
