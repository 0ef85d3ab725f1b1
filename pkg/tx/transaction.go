// Package tx defines ledger transactions and their canonical form.
package tx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nexus-share/nexus-ledger/pkg/crypto"
	"github.com/nexus-share/nexus-ledger/pkg/types"
)

// Kind discriminates the credit movements the ledger records.
type Kind string

// Transaction kinds.
const (
	KindGenesis             Kind = "genesis"
	KindInitialCredit       Kind = "initial_credit"
	KindResourceDeclaration Kind = "resource_declaration"
	KindResourceDownload    Kind = "resource_download"
	KindMiningReward        Kind = "mining_reward"
	KindTransfer            Kind = "transfer"
)

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindGenesis, KindInitialCredit, KindResourceDeclaration,
		KindResourceDownload, KindMiningReward, KindTransfer:
		return true
	}
	return false
}

// Transaction is an immutable record of a credit movement. All fields are
// fixed at construction; the fingerprint is precomputed from the canonical
// serialization and never changes.
type Transaction struct {
	sender      types.Identity
	receiver    types.Identity
	amount      float64
	kind        Kind
	resource    Payload
	timestamp   int64
	fingerprint types.Hash
}

// New constructs a transaction, stamping it with the current wall-clock time
// and computing its fingerprint. The payload is deep-copied so later caller
// mutations cannot reach the stored transaction.
func New(sender, receiver types.Identity, amount float64, kind Kind, resource Payload) *Transaction {
	return newAt(sender, receiver, amount, kind, resource, time.Now().UnixNano())
}

func newAt(sender, receiver types.Identity, amount float64, kind Kind, resource Payload, ts int64) *Transaction {
	t := &Transaction{
		sender:    sender,
		receiver:  receiver,
		amount:    amount,
		kind:      kind,
		resource:  resource.clone(),
		timestamp: ts,
	}
	t.fingerprint = crypto.HashString(t.CanonicalString())
	return t
}

// Sender returns the sender identity.
func (t *Transaction) Sender() types.Identity { return t.sender }

// Receiver returns the receiver identity.
func (t *Transaction) Receiver() types.Identity { return t.receiver }

// Amount returns the credit amount moved.
func (t *Transaction) Amount() float64 { return t.amount }

// Kind returns the transaction kind.
func (t *Transaction) Kind() Kind { return t.kind }

// Resource returns a copy of the resource payload (nil if absent).
func (t *Transaction) Resource() Payload { return t.resource.clone() }

// Timestamp returns the construction instant in Unix nanoseconds.
func (t *Transaction) Timestamp() int64 { return t.timestamp }

// Fingerprint returns the precomputed SHA-256 content fingerprint.
func (t *Transaction) Fingerprint() types.Hash { return t.fingerprint }

// IsMint returns true for transactions whose sender is the system identity.
// Mint sends never debit a balance.
func (t *Transaction) IsMint() bool { return t.sender.IsSystem() }

// FormatAmount stringifies a credit amount with the exact precision used in
// balance arithmetic. Canonical serialization and balance math must agree,
// so every amount that appears in a preimage goes through here.
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

// CanonicalString returns the canonical serialization the fingerprint is
// computed over: sender, receiver, amount, kind, timestamp, and the
// sorted-key payload, pipe-separated.
func (t *Transaction) CanonicalString() string {
	return string(t.sender) + "|" +
		string(t.receiver) + "|" +
		FormatAmount(t.amount) + "|" +
		string(t.kind) + "|" +
		strconv.FormatInt(t.timestamp, 10) + "|" +
		t.resource.canonical()
}

// Verify recomputes the fingerprint from the canonical form and compares it
// to the stored one. It only fails for transactions rebuilt from a tampered
// external serialization.
func (t *Transaction) Verify() bool {
	return t.fingerprint == crypto.HashString(t.CanonicalString())
}

// txJSON is the external dictionary form of a transaction.
type txJSON struct {
	Sender      types.Identity `json:"sender"`
	Receiver    types.Identity `json:"receiver"`
	Amount      float64        `json:"amount"`
	Kind        Kind           `json:"kind"`
	Resource    Payload        `json:"resource_data,omitempty"`
	Timestamp   int64          `json:"timestamp"`
	Fingerprint types.Hash     `json:"fingerprint"`
}

// MarshalJSON encodes the transaction in its dictionary form.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(txJSON{
		Sender:      t.sender,
		Receiver:    t.receiver,
		Amount:      t.amount,
		Kind:        t.kind,
		Resource:    t.resource,
		Timestamp:   t.timestamp,
		Fingerprint: t.fingerprint,
	})
}

// UnmarshalJSON rebuilds a transaction from its dictionary form. The
// fingerprint is recomputed from the decoded content; if the serialized
// fingerprint is present and disagrees, decoding fails.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j txJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	if !j.Kind.Valid() {
		return fmt.Errorf("unknown transaction kind %q", j.Kind)
	}
	rebuilt := newAt(j.Sender, j.Receiver, j.Amount, j.Kind, j.Resource, j.Timestamp)
	if !j.Fingerprint.IsZero() && j.Fingerprint != rebuilt.fingerprint {
		return fmt.Errorf("fingerprint mismatch: stored %s, computed %s",
			j.Fingerprint, rebuilt.fingerprint)
	}
	*t = *rebuilt
	return nil
}
