package analysis

import (
	"math"

	"polydelta/internal/fees"
)

// Platform names the venue a comparison prefers.
type Platform string

const (
	PlatformPolymarket  Platform = "Polymarket"
	PlatformTraditional Platform = "Traditional"
)

// VenueReturn is the profit and ROI of a fixed investment on one venue.
type VenueReturn struct {
	Profit float64 `json:"profit"`
	ROI    float64 `json:"roi"` // percent
}

// CostBreakdown itemises what the market venue charges.
type CostBreakdown struct {
	Gas            float64 `json:"gas"`
	FeeRate        float64 `json:"fee_rate"`
	ExchangeFee    float64 `json:"exchange_fee"`
	EffectivePrice float64 `json:"effective_price"`
}

// MarketReturn is the market-venue leg. Error is set when gas consumes the
// whole investment, in which case ROI is −100.
type MarketReturn struct {
	VenueReturn
	Shares float64       `json:"shares"`
	Costs  CostBreakdown `json:"costs"`
	Error  string        `json:"error,omitempty"`
}

// NetROIResult compares the same investment on both venues if the outcome wins.
type NetROIResult struct {
	Investment   float64      `json:"investment"`
	Traditional  VenueReturn  `json:"traditional"`
	Market       MarketReturn `json:"market"`
	Better       Platform     `json:"better"`
	ROIAdvantage float64      `json:"roi_advantage"`
}

// ErrCapitalAfterGas is the market error message when gas ≥ investment.
const ErrCapitalAfterGas = "investment does not cover gas"

// NetROI compares a winning bet of investment at the bookmaker's reference
// probability with buying shares at marketPrice net of fee. Returns nil
// when any input is missing.
func NetROI(reference, marketPrice, investment float64, fee fees.Model) *NetROIResult {
	if !(reference > 0) || !(marketPrice > 0) || !(investment > 0) || math.IsInf(investment, 0) {
		return nil
	}

	tradProfit := investment * (1/reference - 1)
	res := &NetROIResult{
		Investment: investment,
		Traditional: VenueReturn{
			Profit: tradProfit,
			ROI:    tradProfit / investment * 100,
		},
	}

	effective := fees.EffectiveCost(marketPrice, fee.Rate)
	res.Market.Costs = CostBreakdown{
		Gas:            fee.Gas,
		FeeRate:        fee.Rate,
		EffectivePrice: effective,
	}

	capital, ok := fees.CapitalAfterGas(investment, fee.Gas)
	if !ok {
		res.Market.VenueReturn = VenueReturn{Profit: -investment, ROI: -100}
		res.Market.Error = ErrCapitalAfterGas
	} else {
		shares := capital / effective
		profit := shares*1.0 - investment
		res.Market.Shares = shares
		res.Market.VenueReturn = VenueReturn{Profit: profit, ROI: profit / investment * 100}
		res.Market.Costs.ExchangeFee = capital - shares*marketPrice
	}

	res.Better = PlatformTraditional
	if res.Market.ROI > res.Traditional.ROI {
		res.Better = PlatformPolymarket
	}
	res.ROIAdvantage = math.Abs(res.Market.ROI - res.Traditional.ROI)

	return res
}
