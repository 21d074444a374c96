package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPFetcher reads a JSON document of the form
// {"rates": {"MMK": 2100.5, ...}} and picks Target.
type HTTPFetcher struct {
	URL    string
	Target string
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a 5 second client timeout.
func NewHTTPFetcher(url, target string) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Target: target, Client: &http.Client{Timeout: 5 * time.Second}}
}

type ratesDoc struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.Client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("rate source returned %d", resp.StatusCode)
	}
	var doc ratesDoc
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}
	rate, ok := doc.Rates[f.Target]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate for %s missing", f.Target)
	}
	if !rate.IsPositive() {
		return decimal.Zero, errors.New("non-positive rate")
	}
	return rate, nil
}
