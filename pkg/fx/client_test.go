package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/shopspring/decimal"
)

func TestConvert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/convert" {
			t.Errorf("Path should be /convert, got %s", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "secret" {
			t.Errorf("apikey header should be secret, got %s", got)
		}
		query := r.URL.Query()
		if query.Get("from") != "USD" || query.Get("to") != "EUR" || query.Get("amount") != "40" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"query": {"from": "USD", "to": "EUR", "amount": 40},
			"info": {"timestamp": 1679000000, "rate": 0.9},
			"date": "2023-03-16",
			"result": 36
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", server.Client(), log.NewNopLogger())
	conversion, err := client.Convert(context.Background(), "USD", "EUR", decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("Error should be: %v, got %v", nil, err)
	}
	if want := decimal.RequireFromString("0.9"); !conversion.Rate.Equal(want) {
		t.Errorf("Rate should be %s, got %s", want, conversion.Rate)
	}
	if want := decimal.NewFromInt(36); !conversion.Result.Equal(want) {
		t.Errorf("Result should be %s, got %s", want, conversion.Result)
	}
}

func TestConvertProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", server.Client(), log.NewNopLogger())
	_, err := client.Convert(context.Background(), "USD", "EUR", decimal.NewFromInt(40))
	if err != ErrProviderRejected {
		t.Errorf("Error should be: %v, got %v", ErrProviderRejected, err)
	}
}

func TestConvertBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", server.Client(), log.NewNopLogger())
	_, err := client.Convert(context.Background(), "USD", "EUR", decimal.NewFromInt(40))
	if err != ErrProviderUnavailable {
		t.Errorf("Error should be: %v, got %v", ErrProviderUnavailable, err)
	}
}

func TestConvertUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "secret", nil, log.NewNopLogger())
	_, err := client.Convert(context.Background(), "USD", "EUR", decimal.NewFromInt(40))
	if err != ErrProviderUnavailable {
		t.Errorf("Error should be: %v, got %v", ErrProviderUnavailable, err)
	}
}

func TestConvertGarbledPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", server.Client(), log.NewNopLogger())
	_, err := client.Convert(context.Background(), "USD", "EUR", decimal.NewFromInt(40))
	if err != ErrProviderRejected {
		t.Errorf("Error should be: %v, got %v", ErrProviderRejected, err)
	}
}
