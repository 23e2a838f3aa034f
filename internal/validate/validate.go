package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
	rePostal = regexp.MustCompile(`^[A-Za-z0-9 -]{2,12}$`)
	reSID    = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Qty parses a positive quantity. Zero, negative and junk input are rejected
// rather than clamped.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 999 {
		return 0, false
	}
	return n, true
}

// ID validates a resource identifier (product ids, supplier ids, order ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// SessionID validates an opaque client cart session identifier.
func SessionID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reSID.MatchString(s)
}

// Text trims s and enforces 1..limit bytes.
func Text(s string, limit int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > limit {
		return "", false
	}
	return s, true
}

// Name validates a shopper's full name.
func Name(s string) (string, bool) { return Text(s, 100) }

func PostalCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePostal.MatchString(s)
}

// Country accepts a country name or ISO code.
func Country(s string) (string, bool) { return Text(s, 56) }

// Amount parses a non-negative money or percentage value.
func Amount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// Password only enforces a length window; bcrypt ignores bytes past 72.
func Password(s string) bool {
	return len(s) >= 1 && len(s) <= 72
}
