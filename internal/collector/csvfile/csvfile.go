// Package csvfile reads and writes candles in the research CSV layout
//
//	time,complete,o,h,l,c,v
//
// and serves them as a history provider out of archive storage.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/fxlab/internal/core"
)

// Header is the column row written at the top of every file.
var Header = []string{"time", "complete", "o", "h", "l", "c", "v"}

// Older downloads truncated the timestamp to seconds and dropped the zone.
const shortTimeLayout = "2006-01-02T15:04:05"

// Read parses candles from r. The header row is optional. Rows marked
// incomplete are skipped; the rest come back sorted by time with later
// duplicates replacing earlier ones.
func Read(r io.Reader) ([]core.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var bars []core.Bar
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidInput, err)
		}
		if line == 1 && strings.EqualFold(rec[0], Header[0]) {
			continue
		}

		bar, complete, err := parseRecord(rec)
		if err != nil {
			return nil, core.Errorf(core.ErrInvalidInput, "line %d: %v", line, err)
		}
		if complete {
			bars = append(bars, bar)
		}
	}

	return normalize(bars), nil
}

func parseRecord(rec []string) (core.Bar, bool, error) {
	ts, err := parseTime(rec[0])
	if err != nil {
		return core.Bar{}, false, err
	}
	complete, err := strconv.ParseBool(rec[1])
	if err != nil {
		return core.Bar{}, false, fmt.Errorf("complete: %w", err)
	}

	var prices [4]float64
	for i := range prices {
		prices[i], err = strconv.ParseFloat(rec[2+i], 64)
		if err != nil {
			return core.Bar{}, false, fmt.Errorf("%s: %w", Header[2+i], err)
		}
	}
	volume, err := strconv.ParseInt(rec[6], 10, 64)
	if err != nil {
		return core.Bar{}, false, fmt.Errorf("v: %w", err)
	}

	return core.Bar{
		Time:   ts,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}, complete, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(shortTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: %w", s, err)
	}
	return t, nil
}

// Write emits bars with a header row, every row marked complete.
func Write(w io.Writer, bars []core.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	rec := make([]string, len(Header))
	for _, b := range normalize(bars) {
		rec[0] = b.Time.UTC().Format(time.RFC3339)
		rec[1] = "true"
		rec[2] = formatPrice(b.Open)
		rec[3] = formatPrice(b.High)
		rec[4] = formatPrice(b.Low)
		rec[5] = formatPrice(b.Close)
		rec[6] = strconv.FormatInt(b.Volume, 10)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normalize sorts by time and keeps the last bar seen for each timestamp.
func normalize(bars []core.Bar) []core.Bar {
	out := make([]core.Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Time.Equal(out[i].Time) {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// FileName names a download the way the research scripts did:
// <instrument>_<granularity>_<start>_<end>.csv with dates in YYYY-MM-DD.
func FileName(instrument string, granularity core.Granularity, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s.csv", instrument, granularity,
		start.UTC().Format(time.DateOnly), end.UTC().Format(time.DateOnly))
}
