package types

import "github.com/shopspring/decimal"

func init() {
	// Prices are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
