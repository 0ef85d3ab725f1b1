package config

import (
	"fmt"
	"math"
)

// Params holds the ledger economics every participant of a deployment must
// agree on. Changing any of these on a running chain changes what balances
// replay to, so they are kept apart from node-operational settings.
type Params struct {
	// InitialCredit is minted to every new user at registration. The
	// endowment becomes spendable once the next block confirms it.
	InitialCredit float64 `json:"initial_credit"`

	// CreditPerGB prices resources: declaration rewards and download
	// costs are size_gb * CreditPerGB, truncated to whole credits.
	CreditPerGB float64 `json:"credit_per_gb"`

	// BaseReward is the mining subsidy before halving.
	BaseReward float64 `json:"base_reward"`

	// HalvingInterval is the number of blocks between reward halvings.
	HalvingInterval int `json:"halving_interval"`

	// Difficulty is the number of leading hex zeros a block hash needs.
	Difficulty int `json:"difficulty"`

	// FeeRate is the per-transaction overhead on economic kinds
	// (downloads, transfers), aggregated per block and paid to the miner.
	// It is never debited from the sender.
	FeeRate float64 `json:"fee_rate"`
}

// DefaultParams returns the stock economics.
func DefaultParams() Params {
	return Params{
		InitialCredit:   10000,
		CreditPerGB:     1000,
		BaseReward:      50,
		HalvingInterval: 100,
		Difficulty:      2,
		FeeRate:         0.001,
	}
}

// Validate checks the params for values that would break the economy.
func (p Params) Validate() error {
	if p.InitialCredit < 0 {
		return fmt.Errorf("initial_credit must be >= 0")
	}
	if p.CreditPerGB <= 0 {
		return fmt.Errorf("credit_per_gb must be > 0")
	}
	if p.BaseReward < 0 {
		return fmt.Errorf("base_reward must be >= 0")
	}
	if p.HalvingInterval <= 0 {
		return fmt.Errorf("halving_interval must be > 0")
	}
	if p.Difficulty < 0 {
		return fmt.Errorf("difficulty must be >= 0")
	}
	if p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("fee_rate must be in [0, 1)")
	}
	return nil
}

// CreditForSize converts a resource size to whole credits. Truncation, not
// rounding: a 0.0259 GB resource is worth 25 credits at the default rate.
func (p Params) CreditForSize(sizeGB float64) float64 {
	return math.Trunc(sizeGB * p.CreditPerGB)
}

// DownloadCost returns the credit cost of downloading a resource and the
// fee the confirming miner will collect on top of the base reward.
func (p Params) DownloadCost(sizeGB float64) (cost, fee float64) {
	cost = p.CreditForSize(sizeGB)
	return cost, cost * p.FeeRate
}
