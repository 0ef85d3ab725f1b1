// Package block defines ledger blocks and their hashing.
package block

import (
	"strconv"
	"strings"
	"time"

	"github.com/nexus-share/nexus-ledger/pkg/crypto"
	"github.com/nexus-share/nexus-ledger/pkg/tx"
)

// GenesisPrevHash is the previous-hash marker carried by the genesis block.
const GenesisPrevHash = "0"

// Block is an ordered batch of transactions linked to its predecessor by
// hash and sealed by a proof-of-work nonce. Transaction order is exactly
// the order the pool handed them in, with the reward transaction last.
type Block struct {
	Index        uint64            `json:"index"`
	Timestamp    int64             `json:"timestamp"`
	Transactions []*tx.Transaction `json:"transactions"`
	PrevHash     string            `json:"previous_hash"`
	Nonce        uint64            `json:"nonce"`
	Difficulty   int               `json:"difficulty"`
	Hash         string            `json:"hash"`
}

// New creates a block at the given index with nonce zero, stamps it with the
// current wall-clock time, and computes its initial hash.
func New(index uint64, txs []*tx.Transaction, prevHash string, difficulty int) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    time.Now().UnixNano(),
		Transactions: txs,
		PrevHash:     prevHash,
		Difficulty:   difficulty,
	}
	b.Hash = b.ComputeHash()
	return b
}

// HashPayload builds the hash preimage: index, timestamp, previous hash, and
// nonce, followed by every member transaction fingerprint in block order.
func (b *Block) HashPayload() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.Index, 10))
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	sb.WriteString(b.PrevHash)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))
	for _, t := range b.Transactions {
		sb.WriteString(t.Fingerprint().String())
	}
	return sb.String()
}

// ComputeHash is the pure recomputation used by validators. It never touches
// the stored Hash field.
func (b *Block) ComputeHash() string {
	return crypto.HashString(b.HashPayload()).String()
}

// MeetsDifficulty reports whether the stored hash starts with the number of
// hexadecimal zeros the block's difficulty demands.
func (b *Block) MeetsDifficulty() bool {
	return strings.HasPrefix(b.Hash, strings.Repeat("0", b.Difficulty))
}
