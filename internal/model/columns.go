package model

import (
	"fmt"
	"math"
)

// DateColumn is the key column of every persisted table.
const DateColumn = "date"

// CloseColumn names the raw close column of a currency.
func CloseColumn(currency string) string { return "close_" + currency }

// MAColumn names the simple moving average column for window.
func MAColumn(window int, currency string) string {
	return fmt.Sprintf("ma%d_%s", window, currency)
}

// BandColumn names the quantile prediction column, e.g. q01_usd for tau 0.01.
func BandColumn(tau float64, currency string) string {
	return fmt.Sprintf("q%02d_%s", int(math.Round(tau*100)), currency)
}

// PositionColumn names the band position percentage column.
func PositionColumn(currency string) string { return "pos_" + currency }

// Columns lists every column of an enriched table in persisted order.
func Columns(currencies []string, windows []int, quantiles []float64) []string {
	cols := []string{DateColumn}
	for _, cur := range currencies {
		cols = append(cols, CloseColumn(cur))
		for _, w := range windows {
			cols = append(cols, MAColumn(w, cur))
		}
		for _, q := range quantiles {
			cols = append(cols, BandColumn(q, cur))
		}
		cols = append(cols, PositionColumn(cur))
	}
	return cols
}
