package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"polymarket-index/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGetOrderBookParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.BookResponse{
			AssetID: "tok1",
			Bids:    []types.WirePriceLevel{{Price: "0.40", Size: "10"}},
			Asks:    []types.WirePriceLevel{{Price: "0.60", Size: "10"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	book, err := c.GetOrderBook(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	if book.AssetID != "tok1" || len(book.Bids) != 1 {
		t.Errorf("book = %+v, want one bid on tok1", book)
	}
}

func TestGetOrderBookTripsBreakerOnRepeatedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	for i := 0; i < 5; i++ {
		if _, err := c.GetOrderBook(context.Background(), "tok1"); err == nil {
			t.Fatalf("attempt %d: expected error from failing server", i)
		}
	}

	if _, err := c.GetOrderBook(context.Background(), "tok1"); err == nil {
		t.Error("expected the circuit breaker to be open after consecutive failures")
	}
}

func TestPostOrdersRejectsOversizedBatch(t *testing.T) {
	c := NewClient("http://localhost", testLogger())
	orders := make([]types.SignedOrder, 16)
	if _, err := c.PostOrders(context.Background(), orders); err == nil {
		t.Error("expected error for a batch over 15 orders")
	}
}

func TestPostOrdersEmptyIsNoop(t *testing.T) {
	c := NewClient("http://localhost", testLogger())
	results, err := c.PostOrders(context.Background(), nil)
	if err != nil {
		t.Fatalf("PostOrders: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil for empty orders, got %v", results)
	}
}

func TestCancelOrdersEmptyIsNoop(t *testing.T) {
	c := NewClient("http://localhost", testLogger())
	resp, err := c.CancelOrders(context.Background(), nil)
	if err != nil {
		t.Fatalf("CancelOrders: %v", err)
	}
	if len(resp.Canceled) != 0 {
		t.Errorf("expected 0 canceled, got %d", len(resp.Canceled))
	}
}

func TestCancelOrdersForwardsIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrderIDs []string `json:"orderIDs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(types.CancelResponse{Canceled: body.OrderIDs})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	resp, err := c.CancelOrders(context.Background(), []string{"o1", "o2"})
	if err != nil {
		t.Fatalf("CancelOrders: %v", err)
	}
	if len(resp.Canceled) != 2 {
		t.Errorf("Canceled = %v, want 2 entries", resp.Canceled)
	}
}
