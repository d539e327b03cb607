package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"hftengine/pkg/types"
)

// CSVReader reads historical bars for the backtest driver. Each row has
// columns timestamp,open,high,low,close,volume; timestamp is either
// RFC-3339 or epoch-seconds, detected per row.
type CSVReader struct {
	r *csv.Reader
}

// NewCSVReader wraps r, skipping a header row if the first field of the
// first record does not parse as a timestamp.
func NewCSVReader(r io.Reader) *CSVReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	return &CSVReader{r: cr}
}

// ReadAll reads every remaining bar. A malformed row is reported as an
// IngressError; the caller decides whether to skip or abort the run.
func (c *CSVReader) ReadAll() ([]types.OHLCV, error) {
	var bars []types.OHLCV
	lineNum := 0
	headerSkipped := false

	for {
		record, err := c.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return bars, fmt.Errorf("read csv row %d: %w", lineNum, err)
		}
		lineNum++

		if !headerSkipped {
			headerSkipped = true
			if _, _, err := parseTimestamp(record[0]); err != nil {
				continue // first row was a header, not data
			}
		}

		bar, err := parseBar(record)
		if err != nil {
			return bars, &IngressError{Line: lineNum, Reason: err.Error()}
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// IngressError reports a malformed historical-data row.
type IngressError struct {
	Line   int
	Reason string
}

func (e *IngressError) Error() string {
	return fmt.Sprintf("malformed bar row at line %d: %s", e.Line, e.Reason)
}

func parseBar(record []string) (types.OHLCV, error) {
	ts, _, err := parseTimestamp(record[0])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("timestamp: %w", err)
	}
	open, err := decimal.NewFromString(record[1])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("open: %w", err)
	}
	high, err := decimal.NewFromString(record[2])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("high: %w", err)
	}
	low, err := decimal.NewFromString(record[3])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("low: %w", err)
	}
	close, err := decimal.NewFromString(record[4])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("close: %w", err)
	}
	volume, err := decimal.NewFromString(record[5])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("volume: %w", err)
	}

	return types.OHLCV{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}, nil
}

// parseTimestamp accepts RFC-3339 or epoch-seconds (integer or decimal).
func parseTimestamp(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		whole := int64(secs)
		frac := secs - float64(whole)
		return time.Unix(whole, int64(frac*1e9)).UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("%q is neither RFC-3339 nor epoch-seconds", s)
}
