package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Item is one purchased line on a receipt. Prices stay decimal strings on
// the wire; ParseCents converts them when a rule needs arithmetic.
type Item struct {
	ShortDescription string `json:"shortDescription"`
	Price            string `json:"price"`
}

// Receipt is the external shape submitted for scoring. It is read-only
// once submitted; the engine never mutates it.
type Receipt struct {
	Retailer     string `json:"retailer"`
	PurchaseDate string `json:"purchaseDate"`
	PurchaseTime string `json:"purchaseTime"`
	Items        []Item `json:"items"`
	Total        string `json:"total"`
}

// ScoredReceipt is the persisted record: the submitted receipt plus the
// points the active rule set awarded it.
type ScoredReceipt struct {
	ID       string    `json:"id"`
	Receipt  Receipt   `json:"receipt"`
	Points   int64     `json:"points"`
	ScoredAt time.Time `json:"scored_at"`
}

var (
	retailerPattern    = regexp.MustCompile(`^[\w\s\-&]+$`)
	descriptionPattern = regexp.MustCompile(`^[\w\s\-]+$`)
	amountPattern      = regexp.MustCompile(`^\d+\.\d{2}$`)
	datePattern        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern        = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
)

// Validate checks structural well-formedness only: field formats and the
// presence of at least one item. Business semantics (whether the retailer
// exists, whether the total adds up) are out of scope. All failures wrap
// ErrMalformedReceipt.
func (r Receipt) Validate() error {
	if !retailerPattern.MatchString(r.Retailer) {
		return malformed("retailer", "must contain only alphanumerics, spaces, hyphens, and &")
	}
	if !datePattern.MatchString(r.PurchaseDate) {
		return malformed("purchaseDate", "must be in YYYY-MM-DD format")
	}
	if _, err := time.Parse("2006-01-02", r.PurchaseDate); err != nil {
		return malformed("purchaseDate", "must be a real calendar date")
	}
	if !timePattern.MatchString(r.PurchaseTime) {
		return malformed("purchaseTime", "must be in 24-hour HH:MM format")
	}
	if !amountPattern.MatchString(r.Total) {
		return malformed("total", "must be a decimal amount like 12.00")
	}
	if len(r.Items) == 0 {
		return malformed("items", "must contain at least one item")
	}
	for i, it := range r.Items {
		if !descriptionPattern.MatchString(it.ShortDescription) {
			return malformed(fmt.Sprintf("items[%d].shortDescription", i),
				"must contain only alphanumerics, spaces, and hyphens")
		}
		if !amountPattern.MatchString(it.Price) {
			return malformed(fmt.Sprintf("items[%d].price", i), "must be a decimal amount like 6.49")
		}
	}
	return nil
}

func malformed(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrMalformedReceipt, field, reason)
}

// Cents is a monetary amount in integer hundredths. All rule arithmetic is
// exact integer math; there is no floating-point money anywhere.
type Cents int64

// ParseCents parses a strict NN.NN decimal string.
func ParseCents(s string) (Cents, error) {
	if !amountPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrMalformedReceipt, s)
	}
	whole, err := strconv.ParseInt(s[:len(s)-3], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrMalformedReceipt, s)
	}
	frac, err := strconv.ParseInt(s[len(s)-2:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrMalformedReceipt, s)
	}
	return Cents(whole*100 + frac), nil
}

// DecimalCents converts a decimal number (as found in rule documents, e.g.
// 0.25 or 1.00) to cents, rounding to the nearest cent.
func DecimalCents(v float64) Cents {
	if v < 0 {
		return Cents(int64(v*100 - 0.5))
	}
	return Cents(int64(v*100 + 0.5))
}

// Float returns the decimal value of the amount.
func (c Cents) Float() float64 { return float64(c) / 100 }

// String formats the amount back to its NN.NN wire form.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ClockMinutes is a time of day in minutes since midnight, the resolution
// rule time ranges work at. No timezone conversion is ever applied.
type ClockMinutes int

// ParseClock parses a 24-hour HH:MM string.
func ParseClock(s string) (ClockMinutes, error) {
	if !timePattern.MatchString(s) {
		return 0, fmt.Errorf("%w: invalid time %q", ErrMalformedReceipt, s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return ClockMinutes(h*60 + m), nil
}

// String formats the time back to HH:MM.
func (c ClockMinutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// TrimmedLength counts the runes of a description after trimming
// surrounding whitespace.
func TrimmedLength(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}
