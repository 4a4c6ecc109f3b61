package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"polydelta/internal/analysis"
	"polydelta/internal/config"
	"polydelta/internal/fees"
	"polydelta/internal/mathutil"
	"polydelta/internal/odds"
	"polydelta/internal/positions"
)

const usage = `usage: calc <command> [flags]

commands:
  ev       EV of a market price against a bookmaker probability
  kelly    Kelly stake for a market price
  hedge    split a stake across one outcome priced on two venues
  match    hedge both sides of a match across two venues
  roi      net ROI, bookmaker vs Polymarket
  cashout  free-roll and full cash-out for a position
  devig    remove the bookmaker margin

Probabilities may be fractions (0.45) or percentages (45).
Run "calc <command> -h" for flags.`

var errUsage = errors.New(usage)

func main() {
	cfg := config.Load()

	if err := run(os.Args[1:], os.Stdout, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, w io.Writer, cfg config.Config) error {
	if len(args) == 0 {
		return errUsage
	}

	c := &calc{out: w, cfg: cfg}
	switch args[0] {
	case "ev":
		return c.ev(args[1:])
	case "kelly":
		return c.kelly(args[1:])
	case "hedge":
		return c.hedge(args[1:])
	case "match":
		return c.match(args[1:])
	case "roi":
		return c.roi(args[1:])
	case "cashout":
		return c.cashout(args[1:])
	case "devig":
		return c.devig(args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(w, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
}

type calc struct {
	out io.Writer
	cfg config.Config
}

// feeFlags registers -order and -gas on fs.
func (c *calc) feeFlags(fs *flag.FlagSet) func() (fees.Model, error) {
	order := fs.String("order", "market", "order type: market (taker) or limit (maker)")
	gas := fs.Float64("gas", c.cfg.GasCost, "gas cost per transaction in USDC")
	return func() (fees.Model, error) {
		t, err := fees.ParseOrderType(*order)
		if err != nil {
			return fees.Model{}, err
		}
		fee := c.cfg.Fee(t)
		fee.Gas = *gas
		return fee, nil
	}
}

func (c *calc) table(rows [][]string) error {
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	for _, r := range rows {
		if err := table.Append(r[0], r[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func money(v float64) string { return fmt.Sprintf("$%.2f", mathutil.Money(v)) }
func pct(v float64) string   { return fmt.Sprintf("%.2f%%", mathutil.Pct(v)) }
func prob(v float64) string  { return fmt.Sprintf("%.4f", mathutil.Prob(v)) }

var errInsufficient = errors.New("insufficient data: check that prices and amounts are positive")

func (c *calc) ev(args []string) error {
	fs := flag.NewFlagSet("ev", flag.ContinueOnError)
	ref := fs.Float64("ref", 0, "bookmaker probability")
	market := fs.Float64("market", 0, "Polymarket price")
	american := fs.Bool("american", false, "-ref is American odds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, m := odds.ParseQuote(*ref, *american), odds.Normalize(*market)
	ev, ok := analysis.ComputeEV(r, m)
	if !ok {
		return errInsufficient
	}
	return c.table([][]string{
		{"Reference", prob(r)},
		{"Market", prob(m)},
		{"EV", fmt.Sprintf("%+.2f%%", mathutil.Pct(ev))},
		{"Signal", string(analysis.ClassifyEV(ev, c.cfg.EVThreshold))},
	})
}

func (c *calc) kelly(args []string) error {
	fs := flag.NewFlagSet("kelly", flag.ContinueOnError)
	p := fs.Float64("prob", 0, "win probability")
	price := fs.Float64("price", 0, "Polymarket price")
	bankroll := fs.Float64("bankroll", c.cfg.DefaultBankroll, "bankroll in USDC")
	mode := fs.String("mode", string(analysis.RiskConservative), "conservative or aggressive")
	liquidity := fs.Float64("liquidity", 0, "order book depth in USDC (0 = unknown)")
	fee := c.feeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	model, err := fee()
	if err != nil {
		return err
	}

	policy := c.cfg.KellyPolicy()
	rec := analysis.Kelly(odds.Normalize(*p), odds.Normalize(*price), *bankroll,
		policy.Fraction(analysis.RiskMode(*mode)), model, policy)
	if rec.Status == analysis.KellyInsufficientData {
		return errInsufficient
	}

	rows := [][]string{
		{"Status", string(rec.Status)},
		{"Message", rec.Message},
		{"Net odds", prob(rec.NetOdds)},
		{"Edge", pct(rec.Edge * 100)},
		{"Full Kelly", pct(rec.RawKellyPct)},
	}
	if rec.Status == analysis.KellyOK {
		var liq *float64
		if *liquidity > 0 {
			liq = liquidity
		}
		rows = append(rows,
			[]string{"Adjusted", pct(rec.AdjustedPct)},
			[]string{"Stake %", pct(rec.StakePct)},
			[]string{"Stake", money(rec.Stake)},
			[]string{"Capped", strconv.FormatBool(rec.Capped)},
			[]string{"Liquidity warning", strconv.FormatBool(analysis.LiquidityWarning(rec.Stake, liq))},
		)
	}
	return c.table(rows)
}

func (c *calc) hedgeRows(h *analysis.HedgeAllocation) [][]string {
	return [][]string{
		{"Leg 1", fmt.Sprintf("%s %s @ %s", h.Leg1.Venue, h.Leg1.Outcome, prob(h.Leg1.Prob))},
		{"Stake 1", money(h.Stake1)},
		{"Leg 2", fmt.Sprintf("%s %s @ %s", h.Leg2.Venue, h.Leg2.Outcome, prob(h.Leg2.Prob))},
		{"Stake 2", money(h.Stake2)},
		{"Guaranteed return", money(h.GuaranteedReturn)},
		{"Profit", money(h.Profit)},
		{"ROI", pct(h.ROI)},
		{"Combined implied", prob(h.CombinedImplied)},
		{"Arbitrage", strconv.FormatBool(h.IsArbitrage)},
	}
}

func (c *calc) hedge(args []string) error {
	fs := flag.NewFlagSet("hedge", flag.ContinueOnError)
	a := fs.Float64("a", 0, "probability on venue A")
	b := fs.Float64("b", 0, "probability on venue B")
	total := fs.Float64("total", c.cfg.DefaultInvestment, "total stake")
	if err := fs.Parse(args); err != nil {
		return err
	}

	h := analysis.HedgeSingle(
		analysis.Leg{Venue: "A", Prob: odds.Normalize(*a)},
		analysis.Leg{Venue: "B", Prob: odds.Normalize(*b)},
		*total,
	)
	if h == nil {
		return errInsufficient
	}
	return c.table(c.hedgeRows(h))
}

func (c *calc) match(args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	aHome := fs.Float64("a-home", 0, "home probability on venue A")
	aAway := fs.Float64("a-away", 0, "away probability on venue A")
	bHome := fs.Float64("b-home", 0, "home probability on venue B")
	bAway := fs.Float64("b-away", 0, "away probability on venue B")
	total := fs.Float64("total", c.cfg.DefaultInvestment, "total stake")
	if err := fs.Parse(args); err != nil {
		return err
	}

	h := analysis.HedgeMatch(analysis.MatchPrices{
		VenueA: "A",
		VenueB: "B",
		AHome:  odds.Normalize(*aHome),
		AAway:  odds.Normalize(*aAway),
		BHome:  odds.Normalize(*bHome),
		BAway:  odds.Normalize(*bAway),
	}, *total)
	if h == nil {
		return errInsufficient
	}
	return c.table(c.hedgeRows(h))
}

func (c *calc) roi(args []string) error {
	fs := flag.NewFlagSet("roi", flag.ContinueOnError)
	ref := fs.Float64("ref", 0, "bookmaker probability")
	market := fs.Float64("market", 0, "Polymarket price")
	investment := fs.Float64("investment", c.cfg.DefaultInvestment, "amount invested")
	fee := c.feeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	model, err := fee()
	if err != nil {
		return err
	}

	res := analysis.NetROI(odds.Normalize(*ref), odds.Normalize(*market), *investment, model)
	if res == nil {
		return errInsufficient
	}

	polyProfit := money(res.Market.Profit)
	if res.Market.Error != "" {
		polyProfit = res.Market.Error
	}
	return c.table([][]string{
		{"Investment", money(res.Investment)},
		{"Traditional profit", money(res.Traditional.Profit)},
		{"Traditional ROI", pct(res.Traditional.ROI)},
		{"Polymarket profit", polyProfit},
		{"Polymarket ROI", pct(res.Market.ROI)},
		{"Shares", fmt.Sprintf("%.2f", mathutil.Shares(res.Market.Shares))},
		{"Exchange fee", money(res.Market.Costs.ExchangeFee)},
		{"Gas", money(res.Market.Costs.Gas)},
		{"Better", string(res.Better)},
		{"ROI advantage", pct(res.ROIAdvantage)},
	})
}

func (c *calc) cashout(args []string) error {
	fs := flag.NewFlagSet("cashout", flag.ContinueOnError)
	entry := fs.Float64("entry", 0, "entry price")
	current := fs.Float64("current", 0, "current price")
	investment := fs.Float64("investment", c.cfg.DefaultInvestment, "amount invested")
	fee := c.feeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	model, err := fee()
	if err != nil {
		return err
	}

	plan := positions.PlanCashOut(odds.Normalize(*entry), odds.Normalize(*current), *investment, model)
	if plan == nil {
		return errInsufficient
	}

	shares := func(v float64) string { return fmt.Sprintf("%.2f", mathutil.Shares(v)) }
	return c.table([][]string{
		{"Shares", shares(plan.Shares)},
		{"Mark value", money(plan.MarkValue)},
		{"Free roll possible", strconv.FormatBool(plan.FreeRoll.CanFreeRoll)},
		{"Shares to sell", shares(plan.FreeRoll.SharesToSell)},
		{"Shares kept", shares(plan.FreeRoll.RemainingShares)},
		{"Kept value", money(plan.FreeRoll.RemainingValue)},
		{"Cash-out proceeds", money(plan.CashOut.Proceeds)},
		{"Cash-out profit", money(plan.CashOut.Profit)},
		{"Cash-out ROI", pct(plan.CashOut.ROI)},
	})
}

func (c *calc) devig(args []string) error {
	fs := flag.NewFlagSet("devig", flag.ContinueOnError)
	list := fs.String("probs", "", "comma-separated probabilities, e.g. 55,50")
	method := fs.String("method", "multiplicative", "multiplicative or power (two outcomes)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var implied []float64
	for _, part := range strings.Split(*list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("bad probability %q: %w", part, err)
		}
		implied = append(implied, odds.Normalize(v))
	}
	if len(implied) < 2 {
		return errInsufficient
	}

	var fair []float64
	switch *method {
	case "multiplicative":
		fair = odds.RemoveVigN(implied)
	case "power":
		if len(implied) != 2 {
			return errors.New("power method takes exactly two outcomes")
		}
		a, b := odds.RemoveVigPower(implied[0], implied[1])
		fair = []float64{a, b}
	default:
		return fmt.Errorf("unknown method %q", *method)
	}

	rows := [][]string{{"Overround", pct(odds.Overround(implied))}}
	for i := range implied {
		rows = append(rows, []string{
			fmt.Sprintf("Outcome %d", i+1),
			fmt.Sprintf("%s -> %s", prob(implied[i]), prob(fair[i])),
		})
	}
	return c.table(rows)
}
