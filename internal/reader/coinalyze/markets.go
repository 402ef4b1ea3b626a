package coinalyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"liqwatch/internal/model"
	"liqwatch/logger"
)

// FetchMarkets lists the future markets known to the API.
func (c *Client) FetchMarkets(ctx context.Context, endpoint string) ([]model.Market, error) {
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var markets []model.Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return markets, nil
}

// DiscoverSymbols returns the comma-joined symbols starting with prefix.
func (c *Client) DiscoverSymbols(ctx context.Context, endpoint, prefix string) (string, error) {
	markets, err := c.FetchMarkets(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var symbols []string
	for _, m := range markets {
		if strings.HasPrefix(m.Symbol, prefix) {
			symbols = append(symbols, m.Symbol)
		}
	}
	if len(symbols) == 0 {
		return "", fmt.Errorf("no market symbol starts with %q", prefix)
	}

	c.log.WithComponent(component).WithFields(logger.Fields{
		"prefix":  prefix,
		"markets": len(markets),
		"matched": len(symbols),
	}).Info("discovered symbols")

	return strings.Join(symbols, ","), nil
}
