package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/dgnsrekt/sp500-explorer/internal/prices"
)

// BarRecord is the Parquet schema for one daily bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// WriteParquet writes every bar of every series as one row, series in the
// given order.
func WriteParquet(w io.Writer, series []*prices.Series) (int, error) {
	var records []BarRecord
	for _, s := range series {
		for _, b := range s.Bars {
			records = append(records, BarRecord{
				Symbol:    s.Symbol,
				Timestamp: b.Time.UnixMilli(),
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			})
		}
	}

	pw := parquet.NewGenericWriter[BarRecord](w)
	n, err := pw.Write(records)
	if err != nil {
		return n, fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return n, fmt.Errorf("closing parquet writer: %w", err)
	}
	return n, nil
}
