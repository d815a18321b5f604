package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// document is the on-disk column layout of a cached series.
type document struct {
	Ticker string    `json:"ticker"`
	Start  string    `json:"start"`
	End    string    `json:"end"`
	Time   []int64   `json:"time"` // unix seconds
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

func encode(key Key, s *model.PriceSeries) ([]byte, error) {
	n := s.Len()
	doc := document{
		Ticker: key.Ticker,
		Start:  key.Start.Format(model.DateLayout),
		End:    key.End.Format(model.DateLayout),
		Time:   make([]int64, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i, b := range s.Bars {
		doc.Time[i] = b.Time.Unix()
		doc.Open[i] = b.Open
		doc.High[i] = b.High
		doc.Low[i] = b.Low
		doc.Close[i] = b.Close
		doc.Volume[i] = b.Volume
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func decode(r io.Reader, ticker string) (*model.PriceSeries, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	var doc document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	n := len(doc.Time)
	if len(doc.Open) != n || len(doc.High) != n || len(doc.Low) != n || len(doc.Close) != n || len(doc.Volume) != n {
		return nil, fmt.Errorf("decode: column length mismatch")
	}

	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{
			Time:   time.Unix(doc.Time[i], 0).UTC(),
			Open:   doc.Open[i],
			High:   doc.High[i],
			Low:    doc.Low[i],
			Close:  doc.Close[i],
			Volume: doc.Volume[i],
		}
	}
	return model.NewPriceSeries(ticker, bars), nil
}
