// Package data supplies historical price rows to the backtest: provider
// interfaces, a CSV loader, a SQLite-backed contract store, and an archive
// importer for compressed data drops.
package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/optback/market"
	"github.com/rustyeddy/optback/strategy"
)

// ErrContractNotFound reports that no option contract matches the
// requested (symbol, type, strike, expiry) key.
var ErrContractNotFound = errors.New("data: no matching option contract")

// UnderlyingSource fetches raw underlying rows for a symbol. Rows are
// pre-cleaning input: arbitrary order, duplicates and NaN prices allowed.
type UnderlyingSource interface {
	FetchUnderlying(ctx context.Context, symbol string) ([]market.Row, error)
}

// ContractSource fetches raw rows for one option contract. The close price
// lands in market.Row.Price; the backtest uses nothing else from the
// candle.
type ContractSource interface {
	FetchContract(ctx context.Context, symbol string, optType strategy.OptionType, strike float64, expiry time.Time) ([]market.Row, error)
}

// timeLayouts are tried in order when parsing a time cell.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a raw time cell: any of the known layouts, or epoch
// seconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("data: empty time field")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("data: unparseable time %q", s)
}
