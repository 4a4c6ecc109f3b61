package positions

import (
	"fmt"

	"polydelta/internal/fees"
)

// Action is the recommendation emitted for an open position.
type Action string

const (
	ActionFreeRoll   Action = "free_roll"
	ActionTakeProfit Action = "take_profit"
)

// DefaultTakeProfitROI is the full cash-out ROI (percent) that triggers take_profit.
const DefaultTakeProfitROI = 5.0

// Signal is a cash-out recommendation for one position.
type Signal struct {
	Position    Position     `json:"position"`
	Plan        *CashOutPlan `json:"plan"`
	Action      Action       `json:"action"`
	Description string       `json:"description"`
}

// Scan values every position whose current price is known (prices is keyed
// by position ID) under the given fee rates and returns a signal when
// selling everything clears takeProfitROI, or failing that, when a free roll
// is possible.
func Scan(positions []Position, prices map[string]float64, rates fees.Rates, takeProfitROI float64) []Signal {
	var signals []Signal

	for _, pos := range positions {
		current, ok := prices[pos.ID]
		if !ok {
			continue
		}

		if sig := checkCashOut(pos, current, rates, takeProfitROI); sig != nil {
			signals = append(signals, *sig)
		}
	}

	return signals
}

func checkCashOut(pos Position, current float64, rates fees.Rates, takeProfitROI float64) *Signal {
	plan := PlanCashOut(pos.EntryPrice, current, pos.Investment, pos.Fee(rates))
	if plan == nil {
		return nil
	}

	if plan.CashOut.ROI >= takeProfitROI {
		return &Signal{
			Position: pos,
			Plan:     plan,
			Action:   ActionTakeProfit,
			Description: fmt.Sprintf(
				"PROFIT: Sell %.1f shares at ~$%.3f (entry $%.3f). Profit: $%.2f (%.1f%%)",
				plan.Shares, current, pos.EntryPrice, plan.CashOut.Profit, plan.CashOut.ROI,
			),
		}
	}

	if plan.FreeRoll.CanFreeRoll {
		return &Signal{
			Position: pos,
			Plan:     plan,
			Action:   ActionFreeRoll,
			Description: fmt.Sprintf(
				"FREE ROLL: Sell %.1f shares at ~$%.3f to recover $%.2f, keep %.1f shares",
				plan.FreeRoll.SharesToSell, current, pos.Investment, plan.FreeRoll.RemainingShares,
			),
		}
	}

	return nil
}
