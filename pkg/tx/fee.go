package tx

// FeeBearing reports whether the kind carries the per-transaction miner fee.
// Only economic movements between users do; minting kinds are exempt.
func (k Kind) FeeBearing() bool {
	return k == KindResourceDownload || k == KindTransfer
}

// Fee returns the derived miner overhead for the transaction at the given
// rate. The fee is not stored and is never debited from the sender; it only
// exists as an aggregate credited to the miner of the confirming block.
func (t *Transaction) Fee(rate float64) float64 {
	if !t.kind.FeeBearing() {
		return 0
	}
	return t.amount * rate
}
