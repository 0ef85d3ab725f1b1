package config

import "testing"

func TestParams_Validate_DefaultsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("default params should be valid: %v", err)
	}
}

func TestParams_Validate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative initial credit", func(p *Params) { p.InitialCredit = -1 }},
		{"zero credit per gb", func(p *Params) { p.CreditPerGB = 0 }},
		{"negative base reward", func(p *Params) { p.BaseReward = -50 }},
		{"zero halving interval", func(p *Params) { p.HalvingInterval = 0 }},
		{"negative difficulty", func(p *Params) { p.Difficulty = -1 }},
		{"negative fee rate", func(p *Params) { p.FeeRate = -0.001 }},
		{"fee rate of one", func(p *Params) { p.FeeRate = 1 }},
	}
	for _, c := range cases {
		p := DefaultParams()
		c.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestParams_CreditForSize_Truncates(t *testing.T) {
	p := DefaultParams()
	cases := []struct {
		sizeGB float64
		want   float64
	}{
		{1, 1000},
		{5.8, 5800},
		{0.0259, 25}, // truncated, not rounded
		{0.0009, 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := p.CreditForSize(c.sizeGB); got != c.want {
			t.Errorf("CreditForSize(%v) = %v, want %v", c.sizeGB, got, c.want)
		}
	}
}

func TestParams_DownloadCost(t *testing.T) {
	p := DefaultParams()
	cost, fee := p.DownloadCost(0.025)
	if cost != 25 {
		t.Errorf("cost = %v, want 25", cost)
	}
	if fee != 0.025 {
		t.Errorf("fee = %v, want 0.025", fee)
	}

	// The fee scales with the rate, not with a constant.
	p.FeeRate = 0.01
	_, fee = p.DownloadCost(0.025)
	if fee != 0.25 {
		t.Errorf("fee at 1%% = %v, want 0.25", fee)
	}
}
