package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal writes three files: one row per trade, one row per leg, one
// row per equity point. Rows are flushed as they are written so a partial
// run still leaves readable output.
type CSVJournal struct {
	trades *csv.Writer
	legs   *csv.Writer
	equity *csv.Writer
	files  []*os.File
}

func NewCSV(tradesPath, legsPath, equityPath string) (*CSVJournal, error) {
	j := &CSVJournal{}

	open := func(path string) (*csv.Writer, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		return csv.NewWriter(f), nil
	}

	var err error
	if j.trades, err = open(tradesPath); err != nil {
		return nil, err
	}
	if j.legs, err = open(legsPath); err != nil {
		j.Close()
		return nil, err
	}
	if j.equity, err = open(equityPath); err != nil {
		j.Close()
		return nil, err
	}

	headers := []struct {
		w   *csv.Writer
		row []string
	}{
		{j.trades, []string{"trade_id", "entry_time", "exit_time", "entry_underlying", "exit_underlying", "profit", "incomplete"}},
		{j.legs, []string{"trade_id", "leg", "type", "action", "strike", "entry_price", "exit_price", "pnl"}},
		{j.equity, []string{"time", "equity"}},
	}
	for _, h := range headers {
		if err := h.w.Write(h.row); err != nil {
			j.Close()
			return nil, err
		}
		h.w.Flush()
		if err := h.w.Error(); err != nil {
			j.Close()
			return nil, err
		}
	}

	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.EntryUnderlying),
		f(t.ExitUnderlying),
		f(t.Profit),
		strconv.FormatBool(t.Incomplete),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}

	for i, leg := range t.Legs {
		err := j.legs.Write([]string{
			t.TradeID,
			strconv.Itoa(i),
			leg.Type,
			leg.Action,
			f(leg.Strike),
			f(leg.EntryPrice),
			f(leg.ExitPrice),
			f(leg.PnL),
		})
		if err != nil {
			return err
		}
	}
	j.legs.Flush()
	return j.legs.Error()
}

func (j *CSVJournal) RecordEquity(e EquityRecord) error {
	if err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Equity),
	}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	var first error
	for _, w := range []*csv.Writer{j.trades, j.legs, j.equity} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	for _, fl := range j.files {
		if err := fl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
