package positions

import "polydelta/internal/fees"

// FreeRoll is the partial sale that recovers the original investment.
type FreeRoll struct {
	SharesToSell    float64 `json:"shares_to_sell"`
	RemainingShares float64 `json:"remaining_shares"`
	RemainingValue  float64 `json:"remaining_value"`
	CanFreeRoll     bool    `json:"can_free_roll"`
}

// FullCashOut is the result of selling every share now.
type FullCashOut struct {
	Proceeds float64 `json:"proceeds"`
	Profit   float64 `json:"profit"`
	ROI      float64 `json:"roi"` // percent of investment
}

// CashOutPlan decomposes an open position into its free-roll and full
// cash-out alternatives. Both are always populated.
type CashOutPlan struct {
	EntryPrice   float64     `json:"entry_price"`
	CurrentPrice float64     `json:"current_price"`
	Investment   float64     `json:"investment"`
	Fee          fees.Model  `json:"fee"`
	NetEntry     float64     `json:"net_entry"`
	NetExit      float64     `json:"net_exit"`
	Shares       float64     `json:"shares"`
	MarkValue    float64     `json:"mark_value"`
	FreeRoll     FreeRoll    `json:"free_roll"`
	CashOut      FullCashOut `json:"cash_out"`
}

// PlanCashOut values a position bought at entry for investment, now trading
// at current. Returns nil when a price is missing, the exit nets to nothing
// or gas consumes the investment.
func PlanCashOut(entry, current, investment float64, fee fees.Model) *CashOutPlan {
	if !(entry > 0) || !(current > 0) {
		return nil
	}

	netEntry := fees.EffectiveCost(entry, fee.Rate)
	netExit := fees.EffectiveProceeds(current, fee.Rate)
	if !(netExit > 0) {
		return nil
	}

	capital, ok := fees.CapitalAfterGas(investment, fee.Gas)
	if !ok {
		return nil
	}
	shares := capital / netEntry

	toSell := investment / netExit
	remaining := shares - toSell

	proceeds := shares*netExit - fee.Gas
	profit := proceeds - investment

	return &CashOutPlan{
		EntryPrice:   entry,
		CurrentPrice: current,
		Investment:   investment,
		Fee:          fee,
		NetEntry:     netEntry,
		NetExit:      netExit,
		Shares:       shares,
		MarkValue:    shares * current,
		FreeRoll: FreeRoll{
			SharesToSell:    toSell,
			RemainingShares: remaining,
			RemainingValue:  remaining * current,
			CanFreeRoll:     remaining > 0,
		},
		CashOut: FullCashOut{
			Proceeds: proceeds,
			Profit:   profit,
			ROI:      profit / investment * 100,
		},
	}
}
