package alerts

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"polydelta/internal/analysis"
	"polydelta/internal/positions"
)

// Notifier logs value-bet and cash-out alerts, suppressing repeats of the
// same alert within the cooldown window.
type Notifier struct {
	mu         sync.Mutex
	lastAlerts map[string]time.Time // Dedupe alerts
	cooldown   time.Duration        // Minimum time between same alerts
	log        *slog.Logger
}

// NewNotifier creates a new notifier. A nil logger uses slog.Default().
func NewNotifier(cooldown time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		lastAlerts: make(map[string]time.Time),
		cooldown:   cooldown,
		log:        logger,
	}
}

// checkCooldown records key and reports whether it fired within the cooldown.
func (n *Notifier) checkCooldown(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if lastTime, ok := n.lastAlerts[key]; ok && time.Since(lastTime) < n.cooldown {
		return true
	}
	n.lastAlerts[key] = time.Now()
	return false
}

// AlertValueBet logs a value bet. Returns false when suppressed.
func (n *Notifier) AlertValueBet(opp analysis.Opportunity) bool {
	key := fmt.Sprintf("ev-%s-%s-%s-%s", opp.Sport, opp.EventID, opp.Name, opp.Side)
	if n.checkCooldown(key) {
		return false
	}

	n.log.Info("Value bet",
		"sport", opp.Sport,
		"name", opp.Name,
		"side", opp.Side,
		"signal", opp.Signal,
		"reference", fmt.Sprintf("%.1f%%", opp.Reference*100),
		"market", fmt.Sprintf("$%.3f", opp.Market),
		"ev", fmt.Sprintf("%+.2f%%", opp.EV),
	)
	return true
}

// AlertCashOut logs a cash-out recommendation for a tracked position.
func (n *Notifier) AlertCashOut(sig positions.Signal) bool {
	key := fmt.Sprintf("cashout-%s-%s", sig.Position.ID, sig.Action)
	if n.checkCooldown(key) {
		return false
	}

	n.log.Info("Cash-out signal",
		"action", sig.Action,
		"position", sig.Position.ID,
		"outcome", sig.Position.Outcome,
		"entry", sig.Position.EntryPrice,
		"current", sig.Plan.CurrentPrice,
		"profit", fmt.Sprintf("$%.2f", sig.Plan.CashOut.Profit),
		"detail", sig.Description,
	)
	return true
}

// AlertLiquidity warns that a recommended stake exceeds book depth.
func (n *Notifier) AlertLiquidity(name string, stake, liquidity float64) bool {
	if n.checkCooldown("liquidity-" + name) {
		return false
	}

	n.log.Warn("Stake exceeds liquidity",
		"name", name,
		"stake", fmt.Sprintf("$%.2f", stake),
		"liquidity", fmt.Sprintf("$%.2f", liquidity),
	)
	return true
}

// LogScan logs a scan completion
func (n *Notifier) LogScan(sport string, quotes, valueBets int, elapsed time.Duration) {
	n.log.Info("Scan complete", "sport", sport, "quotes", quotes, "value_bets", valueBets, "elapsed", elapsed)
}

// LogError logs an error
func (n *Notifier) LogError(context string, err error) {
	n.log.Error("Scan failed", "context", context, "error", err)
}

// CleanupOldAlerts removes alert records older than an hour or the
// cooldown, whichever is longer.
func (n *Notifier) CleanupOldAlerts() {
	n.mu.Lock()
	defer n.mu.Unlock()

	maxAge := time.Hour
	if n.cooldown > maxAge {
		maxAge = n.cooldown
	}
	cutoff := time.Now().Add(-maxAge)
	for key, t := range n.lastAlerts {
		if t.Before(cutoff) {
			delete(n.lastAlerts, key)
		}
	}
}
