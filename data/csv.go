package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/optback/market"
)

// ReadUnderlyingCSV loads raw underlying rows from a CSV stream. The header
// must contain DateTime and Price columns (case-insensitive); any other
// numeric column becomes an Extra field on the row, which is how VIX and
// similar per-tick inputs reach the volatility conditions.
func ReadUnderlyingCSV(r io.Reader) ([]market.Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("data: reading csv header: %w", err)
	}

	timeCol, priceCol := -1, -1
	extraCols := map[int]string{}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "datetime", "date", "time", "timestamp":
			if timeCol == -1 {
				timeCol = i
			}
		case "price", "close":
			if priceCol == -1 {
				priceCol = i
			}
		default:
			extraCols[i] = strings.ToUpper(strings.TrimSpace(name))
		}
	}
	if timeCol == -1 || priceCol == -1 {
		return nil, fmt.Errorf("data: csv needs DateTime and Price columns, got %v", header)
	}

	var rows []market.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: reading csv row: %w", err)
		}

		t, err := ParseTime(rec[timeCol])
		if err != nil {
			return nil, err
		}

		row := market.Row{Time: t, Price: parseCell(rec[priceCol])}
		for i, name := range extraCols {
			if i >= len(rec) {
				continue
			}
			if v := parseCell(rec[i]); !math.IsNaN(v) {
				if row.Extra == nil {
					row.Extra = map[string]float64{}
				}
				row.Extra[name] = v
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LoadUnderlyingCSV reads a CSV file from disk.
func LoadUnderlyingCSV(path string) ([]market.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadUnderlyingCSV(f)
}

// parseCell converts a CSV cell to float64, NaN for empty/unparseable
// values so cleaning can forward-fill them.
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
