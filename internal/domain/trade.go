package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side es el lado de un trade ("BUY" o "SELL").
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid indica si el lado es uno de los dos valores conocidos.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// HistoricalTrade es un trade histórico de un trader seguido. Es input de
// solo lectura: el backtest nunca lo modifica.
type HistoricalTrade struct {
	Market    string
	Side      Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	Timestamp time.Time
	Trader    string
}

// FilterByDateRange devuelve los trades cuyo timestamp cae dentro del rango
// de días calendario UTC [start 00:00:00, end 23:59:59], ambos inclusive.
// Se aplica una sola vez al cargar los datos, nunca durante la simulación.
func FilterByDateRange(trades []HistoricalTrade, start, end time.Time) []HistoricalTrade {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)

	var out []HistoricalTrade
	for _, t := range trades {
		ts := t.Timestamp.UTC()
		if ts.Before(from) || ts.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}
