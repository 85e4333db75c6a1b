package normalize

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned when no numeric substring can be found in a
// price string. Callers proceed with a nil price, never a silent zero.
var ErrInvalidPrice = errors.New("no numeric price found")

// moneyRe matches the first money-like number in free text, tolerating
// currency symbols and thousands separators around it.
var moneyRe = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})*(?:\.\d+)?|-?\d+(?:\.\d+)?`)

// ParsePrice extracts a numeric price from a currency-formatted string such
// as "$1,234.56". Symbols and thousands separators are stripped.
func ParsePrice(s string) (float64, error) {
	m := moneyRe.FindString(s)
	if m == "" {
		return 0, ErrInvalidPrice
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// Round2 rounds to two decimals, half up. The small nudge keeps values that
// sit exactly on a half-cent boundary after float arithmetic from rounding
// down (e.g. 2.675 -> 2.68).
func Round2(v float64) float64 {
	return math.Round((v+1e-9)*100) / 100
}
