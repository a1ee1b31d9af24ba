package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/internal/domain"
)

// CSVFeed implementa ports.TradeFeed leyendo un archivo local con columnas
// market,side,price,size,timestamp,trader. El timestamp acepta unix seconds,
// unix millis o RFC3339. Una primera fila de cabecera es opcional.
type CSVFeed struct {
	path string
}

// NewCSVFeed crea un feed para la ruta dada.
func NewCSVFeed(path string) *CSVFeed {
	return &CSVFeed{path: path}
}

// Load lee y parsea el archivo completo.
func (f *CSVFeed) Load(ctx context.Context) ([]domain.HistoricalTrade, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("feed.CSVFeed: open %q: %w", f.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("feed.CSVFeed: read %q: %w", f.path, err)
	}

	var trades []domain.HistoricalTrade
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "market") {
			continue // cabecera
		}

		trade, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("feed.CSVFeed: %s line %d: %w", f.path, i+1, err)
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

func parseRecord(rec []string) (domain.HistoricalTrade, error) {
	side := domain.Side(strings.ToUpper(rec[1]))
	if !side.Valid() {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid side %q", rec[1])
	}

	price, err := decimal.NewFromString(rec[2])
	if err != nil {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid price %q: %w", rec[2], err)
	}
	size, err := decimal.NewFromString(rec[3])
	if err != nil {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid size %q: %w", rec[3], err)
	}

	ts := parseTimestamp(rec[4])
	if ts.IsZero() {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid timestamp %q", rec[4])
	}

	return domain.HistoricalTrade{
		Market:    rec[0],
		Side:      side,
		Price:     price,
		Size:      size,
		Timestamp: ts,
		Trader:    rec[5],
	}, nil
}

// parseTimestamp intenta unix seconds/millis y después formatos ISO.
func parseTimestamp(s string) time.Time {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		if sec > 1e12 {
			return time.Unix(sec/1000, (sec%1000)*int64(time.Millisecond)).UTC()
		}
		return time.Unix(sec, 0).UTC()
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
