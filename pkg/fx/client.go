package fx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the fixer conversion API.
const DefaultBaseURL = "https://api.apilayer.com/fixer"

var (
	// ErrProviderUnavailable error fired when the rate provider cannot be reached
	ErrProviderUnavailable = errors.New("Currency provider unavailable")

	// ErrProviderRejected error fired when the rate provider refuses the conversion
	ErrProviderRejected = errors.New("Currency provider rejected conversion")
)

// Conversion is the outcome of one currency conversion.
type Conversion struct {
	Rate   decimal.Decimal
	Result decimal.Decimal
}

// Converter converts an amount between two currency codes. Failures are
// returned to the caller; the settlement routine decides whether to abort or
// fall back to the unconverted amount.
type Converter interface {
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*Conversion, error)
}

// NewClient returns a Converter backed by the fixer /convert endpoint.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     log.With(logger, "client", "fx"),
	}
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     log.Logger
}

type convertResponse struct {
	Success bool `json:"success"`
	Query   struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"query"`
	Info struct {
		Timestamp int64           `json:"timestamp"`
		Rate      decimal.Decimal `json:"rate"`
	} `json:"info"`
	Result decimal.Decimal `json:"result"`
}

// Convert implements Converter.
func (c *Client) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*Conversion, error) {
	query := url.Values{}
	query.Set("to", to)
	query.Set("from", from)
	query.Set("amount", amount.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/convert?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = level.Error(c.logger).Log("method", "Convert", "from", from, "to", to, "err", err)
		return nil, ErrProviderUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = level.Error(c.logger).Log("method", "Convert", "from", from, "to", to, "status", resp.StatusCode)
		return nil, ErrProviderUnavailable
	}

	var payload convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		_ = level.Error(c.logger).Log("method", "Convert", "from", from, "to", to, "err", err)
		return nil, ErrProviderRejected
	}
	if !payload.Success {
		_ = level.Error(c.logger).Log("method", "Convert", "from", from, "to", to, "msg", "provider reported failure")
		return nil, ErrProviderRejected
	}

	return &Conversion{
		Rate:   payload.Info.Rate,
		Result: payload.Result,
	}, nil
}
