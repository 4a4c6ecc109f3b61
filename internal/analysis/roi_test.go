package analysis

import (
	"testing"

	"polydelta/internal/fees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetROI(t *testing.T) {
	res := NetROI(0.40, 0.30, 100, takerFee)
	require.NotNil(t, res)

	assert.InDelta(t, 150, res.Traditional.Profit, 1e-9)
	assert.InDelta(t, 150, res.Traditional.ROI, 1e-9)

	shares := 99.95 / (0.30 * 1.02)
	assert.InDelta(t, shares, res.Market.Shares, 1e-9)
	assert.InDelta(t, shares-100, res.Market.Profit, 1e-9)
	assert.InDelta(t, shares-100, res.Market.ROI, 1e-9)
	assert.Empty(t, res.Market.Error)

	assert.Equal(t, 0.05, res.Market.Costs.Gas)
	assert.Equal(t, 0.02, res.Market.Costs.FeeRate)
	assert.InDelta(t, 0.306, res.Market.Costs.EffectivePrice, 1e-12)
	assert.InDelta(t, 99.95-shares*0.30, res.Market.Costs.ExchangeFee, 1e-9)

	assert.Equal(t, PlatformPolymarket, res.Better)
}

func TestNetROIVerdictConsistency(t *testing.T) {
	for _, ref := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		for _, price := range []float64{0.05, 0.3, 0.5, 0.7, 0.95} {
			for _, fee := range []fees.Model{takerFee, {Gas: 0.05}, {Gas: 200, Rate: 0.02}} {
				res := NetROI(ref, price, 100, fee)
				require.NotNil(t, res)

				assert.Equal(t, res.Market.ROI > res.Traditional.ROI, res.Better == PlatformPolymarket)
				diff := res.Market.ROI - res.Traditional.ROI
				if diff < 0 {
					diff = -diff
				}
				assert.Equal(t, diff, res.ROIAdvantage)
			}
		}
	}
}

func TestNetROICapitalAfterGas(t *testing.T) {
	res := NetROI(0.5, 0.5, 0.05, takerFee)
	require.NotNil(t, res)

	assert.Equal(t, ErrCapitalAfterGas, res.Market.Error)
	assert.Equal(t, -100.0, res.Market.ROI)
	assert.Zero(t, res.Market.Shares)
	assert.Equal(t, PlatformTraditional, res.Better)
}

func TestNetROIInsufficientData(t *testing.T) {
	assert.Nil(t, NetROI(0, 0.5, 100, takerFee))
	assert.Nil(t, NetROI(0.5, 0, 100, takerFee))
	assert.Nil(t, NetROI(0.5, 0.5, 0, takerFee))
}
