package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pitchfeed/internal/models"

	"github.com/araddon/dateparse"
	"golang.org/x/time/rate"
)

const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
		Day    string `json:"07. latest trading day"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	Note                 string `json:"Note"`
	Information          string `json:"Information"`
}

// AlphaVantage resolves stock tickers through the AlphaVantage HTTP API.
// Asset ids are ticker symbols.
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewAlphaVantage builds a client limited to rps requests per second.
func NewAlphaVantage(baseURL, apiKey string, rps float64, client *http.Client) *AlphaVantage {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if rps <= 0 {
		rps = 1
	}
	return &AlphaVantage{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		now:     time.Now,
	}
}

func (a *AlphaVantage) get(ctx context.Context, function, symbol string, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %v: %w", symbol, err, ErrUnavailable)
	}

	q := url.Values{}
	q.Set("function", function)
	q.Set("symbol", symbol)
	q.Set("apikey", a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", symbol, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %w", symbol, resp.StatusCode, ErrUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %v: %w", symbol, err, ErrUnavailable)
	}
	return nil
}

func (a *AlphaVantage) CurrentPrice(ctx context.Context, assetID string) (Quote, error) {
	symbol := strings.ToUpper(assetID)
	var result globalQuoteResponse
	if err := a.get(ctx, "GLOBAL_QUOTE", symbol, &result); err != nil {
		return Quote{}, err
	}
	if result.Note != "" || result.Information != "" {
		return Quote{}, fmt.Errorf("%s: throttled: %w", symbol, ErrUnavailable)
	}
	if result.GlobalQuote.Price == "" {
		return Quote{}, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("%s: bad price %q: %w", symbol, result.GlobalQuote.Price, ErrUnavailable)
	}
	asOf := a.now().UTC()
	if day, err := dateparse.ParseIn(result.GlobalQuote.Day, time.UTC); err == nil {
		asOf = day
	}
	return Quote{AssetID: assetID, Price: price, AsOf: asOf}, nil
}

func (a *AlphaVantage) AssetMetadata(ctx context.Context, assetID string) (models.AssetSnapshot, error) {
	symbol := strings.ToUpper(assetID)
	var overview overviewResponse
	if err := a.get(ctx, "OVERVIEW", symbol, &overview); err != nil {
		return models.AssetSnapshot{}, err
	}
	if overview.Note != "" || overview.Information != "" {
		return models.AssetSnapshot{}, fmt.Errorf("%s: throttled: %w", symbol, ErrUnavailable)
	}
	if overview.Symbol == "" {
		return models.AssetSnapshot{}, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}

	q, err := a.CurrentPrice(ctx, assetID)
	if err != nil {
		return models.AssetSnapshot{}, err
	}
	marketCap, _ := strconv.ParseFloat(overview.MarketCapitalization, 64)
	return models.AssetSnapshot{
		AssetID:    assetID,
		Symbol:     overview.Symbol,
		Name:       overview.Name,
		Class:      models.AssetStock,
		Price:      q.Price,
		MarketCap:  marketCap,
		Sector:     overview.Sector,
		Industry:   overview.Industry,
		CapturedAt: a.now().UTC(),
	}, nil
}
