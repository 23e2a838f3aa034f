// Package pricing turns catalog rows into charged prices. Every surface that
// shows or charges money (catalog, cart, checkout, admin dashboard) goes
// through these functions.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	BaseShipping = decimal.RequireFromString("5.99")
	TaxRate      = decimal.RequireFromString("0.08")

	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Tier is one step of the order-level shipping discount. Factor multiplies
// BaseShipping once the subtotal reaches Threshold.
type Tier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Factor    decimal.Decimal `json:"factor"`
	Label     string          `json:"label"`
}

// tiers is ordered from the highest threshold down; the first match wins.
var tiers = []Tier{
	{Threshold: decimal.NewFromInt(200), Factor: decimal.Zero, Label: "free shipping"},
	{Threshold: decimal.NewFromInt(150), Factor: decimal.RequireFromString("0.25"), Label: "75% off shipping"},
	{Threshold: decimal.NewFromInt(100), Factor: decimal.RequireFromString("0.50"), Label: "50% off shipping"},
	{Threshold: decimal.NewFromInt(50), Factor: decimal.RequireFromString("0.75"), Label: "25% off shipping"},
}

// Schedule returns a copy of the discount tiers, highest threshold first.
func Schedule() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseAmount reads a decimal amount, treating blank or malformed input as zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FinalUnitPrice is (basePrice + shippingCost) * (1 + profitMargin/100).
// Negative inputs count as zero.
func FinalUnitPrice(p domain.Product) decimal.Decimal {
	base := nonNegative(p.BasePrice).Add(nonNegative(p.ShippingCost))
	markup := one.Add(nonNegative(p.ProfitMargin).Div(hundred))
	return base.Mul(markup)
}

// Shipping applies the tiered discount to BaseShipping.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	for _, t := range tiers {
		if subtotal.GreaterThanOrEqual(t.Threshold) {
			return BaseShipping.Mul(t.Factor)
		}
	}
	return BaseShipping
}

func Tax(subtotal decimal.Decimal) decimal.Decimal { return subtotal.Mul(TaxRate) }

// TierHint tells the shopper how much more unlocks the next discount.
type TierHint struct {
	SpendMore decimal.Decimal `json:"spendMore"`
	Label     string          `json:"label"`
}

// NextTier reports the closest tier above subtotal. ok is false once
// shipping is already free.
func NextTier(subtotal decimal.Decimal) (TierHint, bool) {
	var next *Tier
	for i := range tiers {
		if subtotal.LessThan(tiers[i].Threshold) {
			next = &tiers[i]
		}
	}
	if next == nil {
		return TierHint{}, false
	}
	return TierHint{SpendMore: next.Threshold.Sub(subtotal), Label: next.Label}, true
}

type Line struct {
	Product  domain.Product
	Quantity int
}

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Next     *TierHint       `json:"nextTier,omitempty"`
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		sum = sum.Add(FinalUnitPrice(l.Product).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Quote computes subtotal + tax + shipping for a set of cart lines. Line order
// does not matter. Amounts are exact; callers round when persisting.
func Quote(lines []Line) Summary {
	return QuoteSubtotal(Subtotal(lines))
}

// Cents rounds half-up to two places.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Bill settles lines to cents for storage. Unit prices are rounded first and
// every other figure derives from them, so the items sum to Subtotal and
// Total is exactly Subtotal + Tax + Shipping.
func Bill(lines []Line) Summary {
	sub := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		sub = sub.Add(Cents(FinalUnitPrice(l.Product)).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	s := Summary{
		Subtotal: sub,
		Tax:      Cents(Tax(sub)),
		Shipping: Cents(Shipping(sub)),
	}
	s.Total = s.Subtotal.Add(s.Tax).Add(s.Shipping)
	if h, ok := NextTier(sub); ok {
		s.Next = &h
	}
	return s
}

func QuoteSubtotal(subtotal decimal.Decimal) Summary {
	s := Summary{
		Subtotal: subtotal,
		Tax:      Tax(subtotal),
		Shipping: Shipping(subtotal),
	}
	s.Total = s.Subtotal.Add(s.Tax).Add(s.Shipping)
	if h, ok := NextTier(subtotal); ok {
		s.Next = &h
	}
	return s
}
