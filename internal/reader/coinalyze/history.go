package coinalyze

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"liqwatch/internal/model"
	"liqwatch/logger"
)

// HistoryRequest describes one time-windowed history query.
type HistoryRequest struct {
	Symbols  string
	Window   model.Window
	Interval string
}

func (r HistoryRequest) query() url.Values {
	q := url.Values{}
	q.Set("symbols", r.Symbols)
	q.Set("from", strconv.FormatInt(r.Window.From.Unix(), 10))
	q.Set("to", strconv.FormatInt(r.Window.To.Unix(), 10))
	q.Set("interval", r.Interval)
	return q
}

// FetchLiquidationHistory returns the liquidation candles of the first
// symbol in the response. An empty or undecodable body yields no candles
// and no error.
func (c *Client) FetchLiquidationHistory(ctx context.Context, endpoint string, req HistoryRequest) ([]model.LiquidationCandle, error) {
	body, err := c.get(ctx, endpoint, req.query())
	if err != nil {
		return nil, err
	}
	return parseHistory[model.LiquidationCandle](c.log, endpoint, body), nil
}

// FetchOpenInterestHistory is FetchLiquidationHistory for the open-interest
// endpoint.
func (c *Client) FetchOpenInterestHistory(ctx context.Context, endpoint string, req HistoryRequest) ([]model.OpenInterestCandle, error) {
	body, err := c.get(ctx, endpoint, req.query())
	if err != nil {
		return nil, err
	}
	return parseHistory[model.OpenInterestCandle](c.log, endpoint, body), nil
}

func parseHistory[T any](log *logger.Log, endpoint string, body []byte) []T {
	var histories []model.History[T]
	if err := json.Unmarshal(body, &histories); err != nil {
		log.WithComponent(component).WithFields(logger.Fields{
			"endpoint": endpoint,
			"bytes":    len(body),
		}).WithError(err).Debug("undecodable history response")
		return nil
	}
	if len(histories) == 0 {
		return nil
	}
	return histories[0].Candles
}
