package block

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nexus-share/nexus-ledger/pkg/tx"
	"github.com/nexus-share/nexus-ledger/pkg/types"
)

// testTxs builds a small transaction batch ending with a mining reward.
func testTxs(t *testing.T) []*tx.Transaction {
	t.Helper()
	return []*tx.Transaction{
		tx.New(types.SystemIdentity, "aaaa111122223333", 10000, tx.KindInitialCredit, nil),
		tx.New("aaaa111122223333", "bbbb444455556666", 25, tx.KindResourceDownload, nil),
		tx.New(types.SystemIdentity, "aaaa111122223333", 50.025, tx.KindMiningReward, nil),
	}
}

// sealed mines a block by brute force, without the consensus engine.
func sealed(t *testing.T, b *Block) *Block {
	t.Helper()
	for !b.MeetsDifficulty() {
		b.Nonce++
		b.Hash = b.ComputeHash()
	}
	return b
}

func TestComputeHashPure(t *testing.T) {
	b := New(1, testTxs(t), "00ab", 1)
	stored := b.Hash
	if got := b.ComputeHash(); got != stored {
		t.Fatalf("fresh block hash must recompute: stored %s, got %s", stored, got)
	}
	if b.Hash != stored {
		t.Fatal("ComputeHash must not mutate the stored hash")
	}
}

func TestHashCoversEveryField(t *testing.T) {
	base := New(1, testTxs(t), "00ab", 1)
	h := base.Hash

	base.Nonce++
	if base.ComputeHash() == h {
		t.Fatal("nonce change must change the hash")
	}
	base.Nonce--

	base.Index++
	if base.ComputeHash() == h {
		t.Fatal("index change must change the hash")
	}
	base.Index--

	base.PrevHash = "00cd"
	if base.ComputeHash() == h {
		t.Fatal("previous hash change must change the hash")
	}
}

func TestMeetsDifficulty(t *testing.T) {
	b := &Block{Hash: "00ab12", Difficulty: 2}
	if !b.MeetsDifficulty() {
		t.Error("two leading zeros should satisfy difficulty 2")
	}
	b.Difficulty = 3
	if b.MeetsDifficulty() {
		t.Error("two leading zeros should not satisfy difficulty 3")
	}
	b.Difficulty = 0
	if !b.MeetsDifficulty() {
		t.Error("difficulty 0 accepts any hash")
	}
}

func TestValidate(t *testing.T) {
	b := sealed(t, New(1, testTxs(t), "00ab", 1))
	if err := b.Validate(); err != nil {
		t.Fatalf("sealed block should validate: %v", err)
	}

	empty := New(1, nil, "00ab", 0)
	if err := empty.Validate(); !errors.Is(err, ErrNoTransactions) {
		t.Errorf("empty block: got %v, want ErrNoTransactions", err)
	}

	tampered := sealed(t, New(1, testTxs(t), "00ab", 1))
	tampered.Timestamp++
	if err := tampered.Validate(); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("tampered timestamp: got %v, want ErrHashMismatch", err)
	}

	weak := New(1, testTxs(t), "00ab", 64)
	if err := weak.Validate(); !errors.Is(err, ErrInsufficientWork) {
		t.Errorf("unmined block: got %v, want ErrInsufficientWork", err)
	}
}

func TestValidateDetectsTamperedTransaction(t *testing.T) {
	b := sealed(t, New(1, testTxs(t), "00ab", 1))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	tamperedJSON := strings.Replace(string(data), `"amount":25`, `"amount":9925`, 1)
	if tamperedJSON == string(data) {
		t.Fatal("tamper substitution did not apply")
	}

	var got Block
	if err := json.Unmarshal([]byte(tamperedJSON), &got); err == nil {
		t.Fatal("tampered member transaction must fail to decode")
	}
}

func TestValidateReward(t *testing.T) {
	good := New(1, testTxs(t), "00ab", 0)
	if err := good.ValidateReward(); err != nil {
		t.Errorf("reward-last block should pass: %v", err)
	}

	noReward := New(1, []*tx.Transaction{
		tx.New(types.SystemIdentity, "aaaa111122223333", 10000, tx.KindInitialCredit, nil),
	}, "00ab", 0)
	if err := noReward.ValidateReward(); !errors.Is(err, ErrBadReward) {
		t.Errorf("missing reward: got %v, want ErrBadReward", err)
	}

	rewardFirst := New(1, []*tx.Transaction{
		tx.New(types.SystemIdentity, "aaaa111122223333", 50, tx.KindMiningReward, nil),
		tx.New(types.SystemIdentity, "aaaa111122223333", 10000, tx.KindInitialCredit, nil),
	}, "00ab", 0)
	if err := rewardFirst.ValidateReward(); !errors.Is(err, ErrBadReward) {
		t.Errorf("reward not last: got %v, want ErrBadReward", err)
	}

	doubleReward := New(1, []*tx.Transaction{
		tx.New(types.SystemIdentity, "aaaa111122223333", 50, tx.KindMiningReward, nil),
		tx.New(types.SystemIdentity, "bbbb444455556666", 50, tx.KindMiningReward, nil),
	}, "00ab", 0)
	if err := doubleReward.ValidateReward(); !errors.Is(err, ErrBadReward) {
		t.Errorf("double reward: got %v, want ErrBadReward", err)
	}

	userReward := New(1, []*tx.Transaction{
		tx.New("aaaa111122223333", "bbbb444455556666", 50, tx.KindMiningReward, nil),
	}, "00ab", 0)
	if err := userReward.ValidateReward(); !errors.Is(err, ErrBadReward) {
		t.Errorf("non-mint reward: got %v, want ErrBadReward", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := sealed(t, New(1, testTxs(t), "00ab", 1))

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Block
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Hash != orig.Hash || got.ComputeHash() != orig.Hash {
		t.Fatal("round trip must preserve a recomputable hash")
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("round-tripped block should validate: %v", err)
	}
}
