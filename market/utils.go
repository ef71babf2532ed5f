package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	isoLayout      = "2006-01-02T15:04:05"
	isoMicroLayout = "2006-01-02T15:04:05.000000"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	isoLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Round rounds v to places decimals, half away from zero.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundPrice rounds a price to the precision the pair is quoted with.
func RoundPrice(pair string, v float64) float64 {
	return Round(v, PriceDecimals(pair))
}

// ParseISOTime parses the ISO-8601 forms found in trade records. A trailing
// "Z" is dropped and the result treated as a zone-less UTC time.
func ParseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q: unrecognised ISO-8601 form", s)
}

// FormatISOTime renders t without a zone suffix when it is in UTC, with
// microseconds only when they are non-zero.
func FormatISOTime(t time.Time) string {
	layout := isoLayout
	if t.Nanosecond()/1000 != 0 {
		layout = isoMicroLayout
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}
