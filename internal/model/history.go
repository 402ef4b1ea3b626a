package model

// History is the first element of a history endpoint response.
type History[T any] struct {
	Symbol  string `json:"symbol"`
	Candles []T    `json:"history"`
}

// Market is one entry of the future-markets listing.
type Market struct {
	Symbol           string `json:"symbol"`
	Exchange         string `json:"exchange"`
	SymbolOnExchange string `json:"symbol_on_exchange"`
	BaseAsset        string `json:"base_asset"`
	QuoteAsset       string `json:"quote_asset"`
	IsPerpetual      bool   `json:"is_perpetual"`
	Margined         string `json:"margined"`
}
