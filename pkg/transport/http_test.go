package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/shopspring/decimal"

	"github.com/SantiagoGigli/transfer-service/pkg/auth"
	"github.com/SantiagoGigli/transfer-service/pkg/endpoint"
	"github.com/SantiagoGigli/transfer-service/pkg/fx"
	"github.com/SantiagoGigli/transfer-service/pkg/repository"
	"github.com/SantiagoGigli/transfer-service/pkg/repository/inmem"
	"github.com/SantiagoGigli/transfer-service/pkg/service"
)

type identityConverter struct{}

func (identityConverter) Convert(_ context.Context, _, _ string, amount decimal.Decimal) (*fx.Conversion, error) {
	return &fx.Conversion{Rate: decimal.NewFromInt(1), Result: amount}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *inmem.RepositoryInmem) {
	t.Helper()
	logger := log.NewNopLogger()
	repo := inmem.NewInmem()
	inmemRepo := repo.(*inmem.RepositoryInmem)

	inmemRepo.InsertCurrency(&repository.Currency{ID: "cur-usd", Name: "USD"})
	inmemRepo.InsertUser(&repository.User{ID: "user-alice", Name: "Alice", Email: "alice@bank.test"})
	inmemRepo.InsertUser(&repository.User{ID: "user-bob", Name: "Bob", Email: "bob@bank.test"})
	inmemRepo.InsertAccount(&repository.BankAccount{
		ID: "acc-alice", UserID: "user-alice", CurrencyID: "cur-usd",
		Amount: decimal.NewFromInt(100),
	})
	inmemRepo.InsertAccount(&repository.BankAccount{
		ID: "acc-bob", UserID: "user-bob", CurrencyID: "cur-usd",
		Amount: decimal.NewFromInt(50),
	})

	svc := service.New(repo, identityConverter{}, service.Config{}, logger)
	endpoints := endpoint.New(svc, logger)
	handler := NewHTTPHandler(endpoints, auth.NewStatic("Test", "12345"), logger)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, inmemRepo
}

func authedRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("user", "Test")
	req.Header.Set("pass", "12345")
	return req
}

func decodeMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	return payload.Message
}

func TestUnauthorizedRequest(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest("GET", server.URL+ReportPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("user", "Test")
	req.Header.Set("pass", "wrong")
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("Status should be 402, got %d", resp.StatusCode)
	}
	if got := decodeMessage(t, resp); got != "User unauthorized" {
		t.Errorf("Message should be 'User unauthorized', got %q", got)
	}
}

func TestCreateTransfer(t *testing.T) {
	server, repo := newTestServer(t)

	body := `{"accountFrom": "acc-alice", "accountTo": "acc-bob", "amount": 40, "description": "rent"}`
	resp, err := server.Client().Do(authedRequest(t, "POST", server.URL+TransferPath, body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status should be 200, got %d", resp.StatusCode)
	}
	var payload struct {
		StatusCode int    `json:"statusCode"`
		Success    string `json:"success"`
		Data       struct {
			User        string          `json:"user"`
			AccountFrom string          `json:"accountFrom"`
			AccountTo   string          `json:"accountTo"`
			Amount      decimal.Decimal `json:"amount"`
			Description string          `json:"description"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.StatusCode != 200 || payload.Success != "Transfer created" {
		t.Errorf("Envelope should be 200/'Transfer created', got %d/%q", payload.StatusCode, payload.Success)
	}
	if want := decimal.RequireFromString("39.6"); !payload.Data.Amount.Equal(want) {
		t.Errorf("Transfer amount should be %s, got %s", want, payload.Data.Amount)
	}
	if payload.Data.User != "user-alice" {
		t.Errorf("Transfer user should be user-alice, got %s", payload.Data.User)
	}
	if len(repo.Transfers) != 1 {
		t.Errorf("Exactly one transfer should be recorded, got %d", len(repo.Transfers))
	}
}

func TestCreateTransferMissingDescription(t *testing.T) {
	server, repo := newTestServer(t)

	body := `{"accountFrom": "acc-alice", "accountTo": "acc-bob", "amount": 40}`
	resp, err := server.Client().Do(authedRequest(t, "POST", server.URL+TransferPath, body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status should be 400, got %d", resp.StatusCode)
	}
	if got := decodeMessage(t, resp); got != "Missing description" {
		t.Errorf("Message should be 'Missing description', got %q", got)
	}
	if len(repo.Transfers) != 0 {
		t.Errorf("No transfer should be recorded, got %d", len(repo.Transfers))
	}
}

func TestReportEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	// settle one transfer, then report over an open window
	body := `{"accountFrom": "acc-alice", "accountTo": "acc-bob", "amount": 40, "description": "rent"}`
	resp, err := server.Client().Do(authedRequest(t, "POST", server.URL+TransferPath, body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = server.Client().Do(authedRequest(t, "GET", server.URL+ReportPath, ""))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status should be 200, got %d", resp.StatusCode)
	}
	var payload struct {
		StatusCode int    `json:"statusCode"`
		Success    string `json:"success"`
		Data       map[string]map[string]struct {
			Email              string `json:"email"`
			PercentageInternal string `json:"percentageInternal"`
			PercentageExternal string `json:"percentageExternal"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.StatusCode != 200 || payload.Success != "Ok" {
		t.Errorf("Envelope should be 200/'Ok', got %d/%q", payload.StatusCode, payload.Success)
	}
	found := false
	for _, week := range payload.Data {
		if stats, ok := week["user-alice"]; ok {
			found = true
			if stats.Email != "alice@bank.test" {
				t.Errorf("Email should be alice@bank.test, got %s", stats.Email)
			}
			if stats.PercentageInternal != "0%" || stats.PercentageExternal != "100%" {
				t.Errorf("Stats should be 0%%/100%%, got %s/%s", stats.PercentageInternal, stats.PercentageExternal)
			}
		}
	}
	if !found {
		t.Errorf("Report should contain user-alice, got %v", payload.Data)
	}
}

func TestReportInvalidDate(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.Client().Do(authedRequest(t, "GET", server.URL+ReportPath+"?from=garbage", ""))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status should be 400, got %d", resp.StatusCode)
	}
	if got := decodeMessage(t, resp); got != "Invalid date" {
		t.Errorf("Message should be 'Invalid date', got %q", got)
	}
}

func TestHealthCheckNeedsNoCredentials(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.Client().Get(server.URL + HealthCheckPath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status should be 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if !payload.Success {
		t.Errorf("HealthCheck should report success")
	}
}

func TestErr2Code(t *testing.T) {
	cases := []struct {
		err         error
		wantCode    int
		wantMessage string
	}{
		{service.ErrMissingDescription, http.StatusBadRequest, "Missing description"},
		{service.ErrSameAccount, http.StatusBadRequest, "Cannot transfer to the same account"},
		{service.ErrInsufficientFunds, http.StatusBadRequest, "Not enough funds"},
		{service.ErrTransferFailed, http.StatusBadRequest, "Transfer failed"},
		{service.ErrReportFailed, http.StatusBadRequest, "Report failed"},
		{repository.ErrAccountNotFound, http.StatusBadRequest, "Accounts not found"},
		{repository.ErrUserNotFound, http.StatusBadRequest, "User not found"},
		{ErrInvalidDate, http.StatusBadRequest, "Invalid date"},
		{auth.ErrUnauthorized, http.StatusPaymentRequired, "User unauthorized"},
		{context.DeadlineExceeded, http.StatusBadRequest, "Bad request"},
	}
	for _, tc := range cases {
		code, message := err2code(tc.err)
		if code != tc.wantCode || message != tc.wantMessage {
			t.Errorf("err2code(%v) should be %d/%q, got %d/%q", tc.err, tc.wantCode, tc.wantMessage, code, message)
		}
	}
}

func TestWelcomePage(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := server.Client().Get(server.URL + WelcomePath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status should be 200, got %d", resp.StatusCode)
	}
}
