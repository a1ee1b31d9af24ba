package feed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copybot/internal/adapters/feed"
	"github.com/alejandrodnm/copybot/internal/domain"
)

func TestDataAPIFeed_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "0xmarket1", r.URL.Query().Get("market"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") != "0" {
			json.NewEncoder(w).Encode([]any{})
			return
		}
		w.Write([]byte(`[
			{"id":"t1","conditionId":"0xmarket1","proxyWallet":"0xaaa","side":"BUY","price":"0.52","size":"150","timestamp":1709294400},
			{"id":"t2","conditionId":"0xmarket1","proxyWallet":"0xbbb","side":"SELL","price":"0.48","size":"75.5","timestamp":1709294460}
		]`))
	}))
	defer srv.Close()

	f := feed.NewDataAPIFeed(srv.URL, []string{"0xmarket1"})
	trades, err := f.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "0xmarket1", trades[0].Market)
	assert.Equal(t, domain.SideBuy, trades[0].Side)
	assert.Equal(t, "0.52", trades[0].Price.String())
	assert.Equal(t, "0xaaa", trades[0].Trader)
	assert.Equal(t, domain.SideSell, trades[1].Side)
	assert.Equal(t, "75.5", trades[1].Size.String())
}

func TestDataAPIFeed_SkipsMalformedTrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") != "0" {
			json.NewEncoder(w).Encode([]any{})
			return
		}
		w.Write([]byte(`[
			{"id":"t1","side":"HOLD","price":"0.52","size":"150","timestamp":1709294400},
			{"id":"t2","side":"BUY","price":"0.48","size":"75.5","timestamp":1709294460}
		]`))
	}))
	defer srv.Close()

	f := feed.NewDataAPIFeed(srv.URL, []string{"0xmarket1"})
	trades, err := f.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.SideBuy, trades[0].Side)
}

func TestDataAPIFeed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	f := feed.NewDataAPIFeed(srv.URL, []string{"0xmarket1"})
	_, err := f.Load(context.Background())
	assert.Error(t, err)
}
