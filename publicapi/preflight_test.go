package publicapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rickgao/publicapi-go/model"
)

func preflightReq(symbol, qty string) model.PreflightRequest {
	return model.PreflightRequest{
		Instrument: model.Instrument{Symbol: symbol, Type: model.InstrumentTypeEquity, Currency: model.USD},
		Side:       model.OrderSideBuy,
		Type:       model.OrderTypeMarket,
		Quantity:   decimal.RequireFromString(qty),
	}
}

func TestPreflight(t *testing.T) {
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acct-1/preflight/single-leg" {
			t.Errorf("path = %s, want /accounts/acct-1/preflight/single-leg", r.URL.Path)
		}
		var body preflightRequestWire
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.Write([]byte(`{"instrument":{"symbol":"AAPL","type":"EQUITY","currency":"USD"},"order_value":"1500.00","estimated_commission":"0.00","estimated_cost":"1500.00"}`))
	})
	defer closeFn()

	resp, err := c.Preflight(t.Context(), "acct-1", preflightReq("AAPL", "10"))
	if err != nil {
		t.Fatalf("Preflight error = %v", err)
	}
	if !resp.EstimatedCost.Equal(decimal.RequireFromString("1500.00")) {
		t.Errorf("EstimatedCost = %s, want 1500.00", resp.EstimatedCost)
	}
}

func TestPreflightBatchPreservesOrder(t *testing.T) {
	var calls int64
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		var body preflightRequestWire
		json.NewDecoder(r.Body).Decode(&body)
		resp := preflightResponseWire{
			Instrument:          body.Instrument,
			OrderValue:          decimal.RequireFromString("100.00"),
			EstimatedCommission: decimal.Zero,
			EstimatedCost:       decimal.RequireFromString("100.00"),
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer closeFn()

	reqs := []model.PreflightRequest{
		preflightReq("AAPL", "1"),
		preflightReq("MSFT", "2"),
		preflightReq("GOOGL", "3"),
	}
	out, err := c.PreflightBatch(t.Context(), "acct-1", reqs)
	if err != nil {
		t.Fatalf("PreflightBatch error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	for i, want := range []string{"AAPL", "MSFT", "GOOGL"} {
		if out[i].Instrument.Symbol != want {
			t.Errorf("out[%d].Instrument.Symbol = %s, want %s", i, out[i].Instrument.Symbol, want)
		}
	}
	if atomic.LoadInt64(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPreflightBatchReturnsErrorOnFailure(t *testing.T) {
	c, closeFn := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeFn()

	reqs := []model.PreflightRequest{preflightReq("AAPL", "1"), preflightReq("MSFT", "2")}
	if _, err := c.PreflightBatch(t.Context(), "acct-1", reqs); err == nil {
		t.Error("PreflightBatch error = nil, want error when every call fails")
	}
}
