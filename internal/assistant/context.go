// Package assistant turns computed market numbers into a prompt context and
// asks a chat model to explain them.
package assistant

import (
	"fmt"
	"strings"

	"polydelta/internal/analysis"
	"polydelta/internal/mathutil"
	"polydelta/internal/positions"
)

// MarketView is everything the calculators produced for one market. Nil
// sections are left out of the context.
type MarketView struct {
	Sport     string
	Name      string
	Reference float64 // normalised bookmaker probability
	Market    float64 // normalised Polymarket price
	Liquidity *float64

	Opportunity *analysis.Opportunity
	Kelly       *analysis.KellyRecommendation
	ROI         *analysis.NetROIResult
	Hedge       *analysis.HedgeAllocation
	CashOut     *positions.CashOutPlan
}

// BuildContext renders the view as a plain text block. Only numbers the
// engine computed appear; the model is told not to invent others.
func BuildContext(v MarketView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "MARKET: %s", v.Name)
	if v.Sport != "" {
		fmt.Fprintf(&b, " (%s)", v.Sport)
	}
	b.WriteString("\n")

	if v.Reference > 0 {
		fmt.Fprintf(&b, "Bookmaker implied probability: %.2f%%\n", mathutil.Pct(v.Reference*100))
	} else {
		b.WriteString("Bookmaker implied probability: unavailable\n")
	}
	if v.Market > 0 {
		fmt.Fprintf(&b, "Polymarket price: $%.4f\n", mathutil.Prob(v.Market))
	} else {
		b.WriteString("Polymarket price: unavailable\n")
	}
	if v.Liquidity != nil {
		fmt.Fprintf(&b, "Order book liquidity: $%.2f\n", mathutil.Money(*v.Liquidity))
	}

	if o := v.Opportunity; o != nil {
		fmt.Fprintf(&b, "\nEXPECTED VALUE: %+.2f%% (%s)\n", mathutil.Pct(o.EV), o.Signal)
	} else if ev, ok := analysis.ComputeEV(v.Reference, v.Market); ok {
		fmt.Fprintf(&b, "\nEXPECTED VALUE: %+.2f%% (%s)\n", mathutil.Pct(ev), analysis.ClassifyEV(ev, analysis.DefaultValueBetThreshold))
	}

	if k := v.Kelly; k != nil {
		b.WriteString("\nKELLY SIZING:\n")
		fmt.Fprintf(&b, "- Status: %s (%s)\n", k.Status, k.Message)
		if k.Status == analysis.KellyOK {
			fmt.Fprintf(&b, "- Edge: %.2f%%\n", mathutil.Pct(k.Edge*100))
			fmt.Fprintf(&b, "- Full Kelly: %.2f%%, adjusted: %.2f%%\n", mathutil.Pct(k.RawKellyPct), mathutil.Pct(k.AdjustedPct))
			fmt.Fprintf(&b, "- Recommended stake: $%.2f of $%.2f bankroll", mathutil.Money(k.Stake), mathutil.Money(k.Bankroll))
			if k.Capped {
				b.WriteString(" (capped)")
			}
			b.WriteString("\n")
			if k.LiquidityWarned {
				b.WriteString("- Warning: stake exceeds available liquidity\n")
			}
		}
	}

	if r := v.ROI; r != nil {
		b.WriteString("\nNET ROI ON $")
		fmt.Fprintf(&b, "%.2f:\n", mathutil.Money(r.Investment))
		fmt.Fprintf(&b, "- Traditional: profit $%.2f, ROI %.2f%%\n", mathutil.Money(r.Traditional.Profit), mathutil.Pct(r.Traditional.ROI))
		if r.Market.Error != "" {
			fmt.Fprintf(&b, "- Polymarket: %s\n", r.Market.Error)
		} else {
			fmt.Fprintf(&b, "- Polymarket: profit $%.2f, ROI %.2f%% after $%.2f gas and %.2f%% fee\n",
				mathutil.Money(r.Market.Profit), mathutil.Pct(r.Market.ROI),
				mathutil.Money(r.Market.Costs.Gas), mathutil.Pct(r.Market.Costs.FeeRate*100))
		}
		fmt.Fprintf(&b, "- Better venue: %s by %.2f points\n", r.Better, mathutil.Pct(r.ROIAdvantage))
	}

	if h := v.Hedge; h != nil {
		b.WriteString("\nHEDGE:\n")
		fmt.Fprintf(&b, "- Stake $%.2f on %s %s, $%.2f on %s %s\n",
			mathutil.Money(h.Stake1), h.Leg1.Venue, h.Leg1.Outcome,
			mathutil.Money(h.Stake2), h.Leg2.Venue, h.Leg2.Outcome)
		fmt.Fprintf(&b, "- Guaranteed return $%.2f, profit $%.2f (%.2f%%)\n",
			mathutil.Money(h.GuaranteedReturn), mathutil.Money(h.Profit), mathutil.Pct(h.ROI))
		if h.IsArbitrage {
			b.WriteString("- This is an arbitrage\n")
		}
	}

	if c := v.CashOut; c != nil {
		b.WriteString("\nPOSITION:\n")
		fmt.Fprintf(&b, "- Entry $%.4f, now $%.4f, %.2f shares\n",
			mathutil.Prob(c.EntryPrice), mathutil.Prob(c.CurrentPrice), mathutil.Shares(c.Shares))
		fmt.Fprintf(&b, "- Full cash-out: $%.2f, profit $%.2f (%.2f%%)\n",
			mathutil.Money(c.CashOut.Proceeds), mathutil.Money(c.CashOut.Profit), mathutil.Pct(c.CashOut.ROI))
		if c.FreeRoll.CanFreeRoll {
			fmt.Fprintf(&b, "- Free roll: sell %.2f shares, keep %.2f worth $%.2f\n",
				mathutil.Shares(c.FreeRoll.SharesToSell), mathutil.Shares(c.FreeRoll.RemainingShares),
				mathutil.Money(c.FreeRoll.RemainingValue))
		} else {
			b.WriteString("- Free roll: not possible at this price\n")
		}
	}

	return b.String()
}
