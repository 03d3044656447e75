package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"

	"github.com/rustyeddy/optback/strategy"
)

// ImportArchive loads a historical data drop into the store. Supported
// inputs:
//
//	.csv     one file, loaded directly
//	.csv.xz  xz-compressed single file
//	.zip     archive of CSV files
//
// File naming decides what a CSV holds:
//
//	SYMBOL.csv                       underlying rows (DateTime, Price, ...)
//	SYMBOL_TYPE_STRIKE_EXPIRY.csv    one contract's candles, e.g.
//	                                 BANKNIFTY_CE_22750_2022-06-02.csv
//
// Returns the number of files loaded.
func ImportArchive(store *Store, path string) (int, error) {
	switch {
	case strings.HasSuffix(path, ".zip"):
		return importZip(store, path)
	case strings.HasSuffix(path, ".xz"):
		return 1, importXZ(store, path)
	case strings.HasSuffix(path, ".csv"):
		return 1, importCSVFile(store, path)
	default:
		return 0, fmt.Errorf("data: unsupported archive %q (want .csv, .csv.xz or .zip)", path)
	}
}

func importZip(store *Store, path string) (int, error) {
	dir, err := os.MkdirTemp("", "optback-import-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	if err := unzip.Extract(path, dir); err != nil {
		return 0, fmt.Errorf("data: extracting %s: %w", path, err)
	}

	n := 0
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".csv") {
			return err
		}
		if err := importCSVFile(store, p); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func importXZ(store *Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("data: opening xz stream %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".xz")
	return importCSV(store, name, r)
}

func importCSVFile(store *Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return importCSV(store, filepath.Base(path), f)
}

func importCSV(store *Store, name string, r io.Reader) error {
	base := strings.TrimSuffix(name, ".csv")

	if symbol, optType, strike, expiry, ok := parseContractName(base); ok {
		rows, err := readContractCSV(r)
		if err != nil {
			return fmt.Errorf("data: %s: %w", name, err)
		}
		return store.PutContract(symbol, optType, strike, expiry, rows)
	}

	rows, err := ReadUnderlyingCSV(r)
	if err != nil {
		return fmt.Errorf("data: %s: %w", name, err)
	}
	return store.PutUnderlying(base, rows)
}

// parseContractName splits SYMBOL_TYPE_STRIKE_EXPIRY. The symbol itself may
// contain underscores; the trailing three fields are fixed.
func parseContractName(base string) (string, strategy.OptionType, float64, time.Time, bool) {
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return "", "", 0, time.Time{}, false
	}
	n := len(parts)
	expiry, err := ParseTime(parts[n-1])
	if err != nil {
		return "", "", 0, time.Time{}, false
	}
	strike, err := strconv.ParseFloat(parts[n-2], 64)
	if err != nil {
		return "", "", 0, time.Time{}, false
	}
	t := strategy.OptionType(strings.ToUpper(parts[n-3]))
	if t != strategy.Call && t != strategy.Put {
		return "", "", 0, time.Time{}, false
	}
	return strings.Join(parts[:n-3], "_"), t, strike, expiry, true
}

// readContractCSV reads option candles: DateTime, Open, High, Low, Close,
// Volume, OpenInterest (header order free, names fixed).
func readContractCSV(r io.Reader) ([]ContractRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	timeCol, ok := col["datetime"]
	if !ok {
		return nil, fmt.Errorf("contract csv needs a DateTime column, got %v", header)
	}

	cell := func(rec []string, name string) float64 {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return math.NaN()
		}
		return parseCell(rec[i])
	}

	var out []ContractRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t, err := ParseTime(rec[timeCol])
		if err != nil {
			return nil, err
		}
		out = append(out, ContractRow{
			Time:         t,
			Open:         cell(rec, "open"),
			High:         cell(rec, "high"),
			Low:          cell(rec, "low"),
			Close:        cell(rec, "close"),
			Volume:       cell(rec, "volume"),
			OpenInterest: cell(rec, "openinterest"),
		})
	}
	return out, nil
}
