// Package fees models Polymarket trading costs: a flat gas charge per
// transaction plus a proportional exchange fee that depends on order type.
package fees

import "fmt"

// OrderType selects the proportional fee schedule.
type OrderType string

const (
	OrderTaker OrderType = "market" // crosses the spread
	OrderMaker OrderType = "limit"  // rests on the book
)

// DefaultGas is the reference gas cost in USDC per transaction.
const DefaultGas = 0.05

// Rates holds the proportional fee for each order type.
type Rates struct {
	Taker float64 `json:"taker"`
	Maker float64 `json:"maker"`
}

// DefaultRates is the Polymarket schedule: 2% taker, free maker.
var DefaultRates = Rates{Taker: 0.02, Maker: 0}

// Model is the cost policy applied to one trade.
type Model struct {
	Gas  float64 `json:"gas"`  // flat, once per transaction
	Rate float64 `json:"rate"` // proportional, applied to entry and exit
}

// ForOrder returns the fee model for an order type.
func (r Rates) ForOrder(t OrderType, gas float64) Model {
	if t == OrderMaker {
		return Model{Gas: gas, Rate: r.Maker}
	}
	return Model{Gas: gas, Rate: r.Taker}
}

// ParseOrderType accepts "market"/"taker" and "limit"/"maker".
func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "", "market", "taker":
		return OrderTaker, nil
	case "limit", "maker":
		return OrderMaker, nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

// EffectiveCost is the per-share price paid on entry.
func EffectiveCost(price, rate float64) float64 {
	return price * (1 + rate)
}

// EffectiveProceeds is the per-share amount received on exit.
func EffectiveProceeds(price, rate float64) float64 {
	return price * (1 - rate)
}

// CapitalAfterGas returns the amount left to buy shares with.
// The second return is false when gas consumes the whole investment.
func CapitalAfterGas(investment, gas float64) (float64, bool) {
	capital := investment - gas
	if capital <= 0 {
		return 0, false
	}
	return capital, true
}

// Shares is the number of shares an investment buys at price after gas and
// the entry fee. Returns 0 when price is not positive or nothing is left
// after gas.
func (m Model) Shares(investment, price float64) float64 {
	capital, ok := CapitalAfterGas(investment, m.Gas)
	if !ok || price <= 0 {
		return 0
	}
	return capital / EffectiveCost(price, m.Rate)
}
