// Package tickers loads the ticker universe to scan.
package tickers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// demo is a small universe of well-known names used when nothing is configured.
var demo = []string{
	"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AMD",
	"NFLX", "AVGO", "SMCI", "PLTR", "COIN", "MSTR", "CELH", "ENPH",
}

// Default returns the demo universe.
func Default() []string {
	out := make([]string, len(demo))
	copy(out, demo)
	return out
}

// Normalize upper-cases and trims tickers, dropping blanks and duplicates
// while keeping first-seen order.
func Normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, t := range list {
		t = model.NormalizeTicker(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Parse splits a comma-separated ticker list.
func Parse(s string) []string {
	return Normalize(strings.Split(s, ","))
}

// LoadCSV reads tickers from a CSV file. The "ticker" or "symbol" column is
// used when the header has one; otherwise the first column.
func LoadCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticker file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV is LoadCSV over a reader.
func ReadCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ticker header: %w", err)
	}

	col, hasHeader := -1, false
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ticker", "symbol":
			if col < 0 {
				col = i
			}
			hasHeader = true
		}
	}
	if col < 0 {
		col = 0
	}

	var raw []string
	if !hasHeader && len(header) > 0 {
		raw = append(raw, header[0])
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ticker file: %w", err)
		}
		if col < len(rec) {
			raw = append(raw, rec[col])
		}
	}
	return Normalize(raw), nil
}
