package feed

// dataapi.go — descarga de trades históricos reales desde la Data API
// pública de Polymarket. La descarga completa termina antes de que arranque
// la simulación; el engine nunca espera red a mitad de run.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/copybot/internal/domain"
)

const (
	defaultDataAPIBase = "https://data-api.polymarket.com"

	tradesPerPage  = 1000
	tradesMaxPages = 10

	// Data API: 200 req/10s documentados → 60% → 12/s.
	tradesRatePerSec = 12

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// DataAPIFeed implementa ports.TradeFeed contra la Data API, con rate
// limiting y retries con backoff exponencial.
type DataAPIFeed struct {
	http    *http.Client
	base    string
	markets []string
	limiter *rate.Limiter
}

// NewDataAPIFeed crea un feed para los condition IDs dados. Si base está
// vacío usa el URL de producción.
func NewDataAPIFeed(base string, markets []string) *DataAPIFeed {
	if base == "" {
		base = defaultDataAPIBase
	}
	return &DataAPIFeed{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		markets: markets,
		limiter: rate.NewLimiter(tradesRatePerSec, 5),
	}
}

type rawDataTrade struct {
	ID          string      `json:"id"`
	ConditionID string      `json:"conditionId"`
	ProxyWallet string      `json:"proxyWallet"`
	Side        string      `json:"side"`
	Price       json.Number `json:"price"`
	Size        json.Number `json:"size"`
	Timestamp   json.Number `json:"timestamp"`
}

// Load descarga los trades de todos los mercados configurados, paginando
// hasta tradesMaxPages por mercado.
func (f *DataAPIFeed) Load(ctx context.Context) ([]domain.HistoricalTrade, error) {
	var all []domain.HistoricalTrade

	for _, market := range f.markets {
		trades, err := f.fetchMarket(ctx, market)
		if err != nil {
			return nil, fmt.Errorf("feed.DataAPIFeed: market %s: %w", market, err)
		}
		all = append(all, trades...)
	}

	slog.Info("fetched historical trades", "markets", len(f.markets), "trades", len(all))
	return all, nil
}

func (f *DataAPIFeed) fetchMarket(ctx context.Context, conditionID string) ([]domain.HistoricalTrade, error) {
	var all []domain.HistoricalTrade

	for page := 0; page < tradesMaxPages; page++ {
		offset := page * tradesPerPage
		url := fmt.Sprintf("%s/trades?market=%s&limit=%d&offset=%d",
			f.base, conditionID, tradesPerPage, offset)

		var resp []rawDataTrade
		if err := f.get(ctx, url, &resp); err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			break
		}

		for _, rt := range resp {
			trade, err := rt.toDomain(conditionID)
			if err != nil {
				slog.Warn("skipping malformed trade", "id", rt.ID, "err", err)
				continue
			}
			all = append(all, trade)
		}

		slog.Debug("fetched trades page",
			"market", conditionID[:min(8, len(conditionID))]+"...",
			"page", page,
			"count", len(resp),
			"total", len(all),
		)

		if len(resp) < tradesPerPage {
			break
		}
	}

	return all, nil
}

func (rt rawDataTrade) toDomain(conditionID string) (domain.HistoricalTrade, error) {
	side := domain.Side(rt.Side)
	if !side.Valid() {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid side %q", rt.Side)
	}
	price, err := decimal.NewFromString(rt.Price.String())
	if err != nil {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid price %q: %w", rt.Price, err)
	}
	size, err := decimal.NewFromString(rt.Size.String())
	if err != nil {
		return domain.HistoricalTrade{}, fmt.Errorf("invalid size %q: %w", rt.Size, err)
	}

	return domain.HistoricalTrade{
		Market:    conditionID,
		Side:      side,
		Price:     price,
		Size:      size,
		Timestamp: parseTimestamp(rt.Timestamp.String()),
		Trader:    rt.ProxyWallet,
	}, nil
}

// get hace un GET con rate limiting y retries con backoff exponencial.
func (f *DataAPIFeed) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			f.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			f.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			f.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (f *DataAPIFeed) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
