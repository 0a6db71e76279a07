package notifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TrendBands/internal/model"
)

// price renders a price with two decimals, or "n/a" when it is not finite.
func price(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}

// zone names where the price sits inside the band.
func zone(pos float64) string {
	switch {
	case math.IsNaN(pos):
		return "unknown"
	case pos <= 10:
		return "near floor"
	case pos >= 90:
		return "near ceiling"
	default:
		return "inside band"
	}
}

// FormatBandReport formats the latest band state of each currency into a
// Telegram message.
func FormatBandReport(symbol string, snaps []model.BandSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s quantile bands</b> | %s\n", symbol, time.Now().Format(model.DateLayout)))

	if len(snaps) == 0 {
		b.WriteString("\nno data available")
		return b.String()
	}
	for _, s := range snaps {
		cur := strings.ToUpper(s.Currency)
		b.WriteString(fmt.Sprintf("\n<b>%s</b> (%s)\n", cur, s.Date.Format(model.DateLayout)))
		b.WriteString(fmt.Sprintf("  price:  %s\n", price(s.Price)))
		b.WriteString(fmt.Sprintf("  floor:  %s\n", price(s.Lower)))
		b.WriteString(fmt.Sprintf("  median: %s\n", price(s.Median)))
		b.WriteString(fmt.Sprintf("  top:    %s\n", price(s.Upper)))
		b.WriteString(fmt.Sprintf("  position: %s (%s)\n", percent(s.Position), zone(s.Position)))
		if !math.IsNaN(s.RSI) {
			b.WriteString(fmt.Sprintf("  RSI14: %s\n", decimal.NewFromFloat(s.RSI).StringFixed(0)))
		}
	}
	return b.String()
}

// FormatFailure formats a refresh error.
func FormatFailure(err error) string {
	return fmt.Sprintf("❌ band refresh failed: %v", err)
}

// FormatHelp lists the available commands.
func FormatHelp() string {
	return "available commands:\n• /bands latest band report\n• /refresh fetch, refit and report"
}
