// Package receiptid encodes and decodes the human-readable receipt identity
// tokens printed on customer receipts: "<PREFIX>-<counter><DDMMYY>". The date
// suffix is always exactly six digits, which is what makes the variable-width
// counter unambiguous to split off. Tokens sort and display sensibly without
// any lookup and survive being copied onto paper.
package receiptid

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// SalePrefix tags receipts produced by live checkout.
	SalePrefix = "INV"
	// ManualPrefix tags receipts entered after the fact to backfill a sale.
	ManualPrefix = "MAN"
)

const dateDigits = 6

// Decoded is the result of splitting a well-formed token.
type Decoded struct {
	Prefix  string
	Counter int
	Day     int
	Month   int
	Year    int
}

// Encode builds a token from a prefix, the day's running sequence number and
// a calendar date. Counters start at 1 per day; zero or negative counters are
// rejected because they would be indistinguishable from a malformed token.
func Encode(prefix string, counter int, date time.Time) (string, error) {
	if prefix != SalePrefix && prefix != ManualPrefix {
		return "", fmt.Errorf("unknown receipt prefix %q", prefix)
	}
	if counter < 1 {
		return "", fmt.Errorf("receipt counter must be >= 1, got %d", counter)
	}
	return fmt.Sprintf("%s-%d%02d%02d%02d", prefix, counter, date.Day(), int(date.Month()), date.Year()%100), nil
}

// Decode splits a token positionally: the last six digits are DDMMYY, the
// digits before them the counter. It reports ok=false for tokens that do not
// carry a recognized prefix or have fewer than seven trailing digits; callers
// then fall back to displaying the raw token instead of failing.
func Decode(token string) (Decoded, bool) {
	var prefix string
	switch {
	case hasPrefix(token, SalePrefix+"-"):
		prefix = SalePrefix
	case hasPrefix(token, ManualPrefix+"-"):
		prefix = ManualPrefix
	default:
		return Decoded{}, false
	}

	rest := token[len(prefix)+1:]
	// Minimum is a 1-digit counter plus the 6-digit date.
	if len(rest) < dateDigits+1 {
		return Decoded{}, false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return Decoded{}, false
		}
	}

	counterPart := rest[:len(rest)-dateDigits]
	datePart := rest[len(rest)-dateDigits:]

	counter, err := strconv.Atoi(counterPart)
	if err != nil || counter < 1 {
		return Decoded{}, false
	}

	day, _ := strconv.Atoi(datePart[0:2])
	month, _ := strconv.Atoi(datePart[2:4])
	year, _ := strconv.Atoi(datePart[4:6])

	return Decoded{
		Prefix:  prefix,
		Counter: counter,
		Day:     day,
		Month:   month,
		Year:    year,
	}, true
}

// Display renders a token for humans as "PREFIX-COUNTER (DD/MM/YY)". Tokens
// that do not decode are returned unchanged so the display layer always has
// something to show.
func Display(token string) string {
	dec, ok := Decode(token)
	if !ok {
		return token
	}
	return fmt.Sprintf("%s-%d (%02d/%02d/%02d)", dec.Prefix, dec.Counter, dec.Day, dec.Month, dec.Year)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
