package engine

import (
	"fmt"
	"time"

	"receiptkit/core"
)

// FieldKind discriminates the typed value a receipt field carries.
type FieldKind int

const (
	KindText FieldKind = iota
	KindAmount
	KindDate
	KindTime
	KindItems
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAmount:
		return "amount"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindItems:
		return "items"
	default:
		return "unknown"
	}
}

// FieldValue is the tagged union evaluators pattern-match on.
type FieldValue interface {
	Kind() FieldKind
}

// Text is a character-sequence field such as the retailer name.
type Text string

// Amount is a monetary field in integer cents.
type Amount core.Cents

// Date is a calendar-date field.
type Date time.Time

// Clock is a time-of-day field in minutes since midnight.
type Clock core.ClockMinutes

// Items is the receipt's item list.
type Items []core.Item

func (Text) Kind() FieldKind   { return KindText }
func (Amount) Kind() FieldKind { return KindAmount }
func (Date) Kind() FieldKind   { return KindDate }
func (Clock) Kind() FieldKind  { return KindTime }
func (Items) Kind() FieldKind  { return KindItems }

// receiptFields maps external field names to the kind of value they hold.
// This is the closed set of addressable receipt attributes.
var receiptFields = map[string]FieldKind{
	"retailer":     KindText,
	"purchaseDate": KindDate,
	"purchaseTime": KindTime,
	"total":        KindAmount,
	"items":        KindItems,
}

// FieldKindOf reports the kind of a named receipt field.
func FieldKindOf(field string) (FieldKind, bool) {
	k, ok := receiptFields[field]
	return k, ok
}

// ExpectedKind reports the field kind a check type consumes.
func ExpectedKind(ct core.CheckType) (FieldKind, bool) {
	switch ct {
	case core.CheckCharacterCount:
		return KindText, true
	case core.CheckCents, core.CheckTotal:
		return KindAmount, true
	case core.CheckDate:
		return KindDate, true
	case core.CheckTime:
		return KindTime, true
	case core.CheckItemsCount, core.CheckItemDescription:
		return KindItems, true
	default:
		return 0, false
	}
}

// Extract pulls the typed value of one named field out of a receipt.
// Unknown names fail with ErrUnknownField (normally caught at rule-set
// validation, never during scoring); unparsable content wraps
// ErrMalformedReceipt.
func Extract(r core.Receipt, field string) (FieldValue, error) {
	switch field {
	case "retailer":
		return Text(r.Retailer), nil
	case "purchaseDate":
		d, err := time.Parse("2006-01-02", r.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", core.ErrMalformedReceipt, r.PurchaseDate)
		}
		return Date(d), nil
	case "purchaseTime":
		c, err := core.ParseClock(r.PurchaseTime)
		if err != nil {
			return nil, err
		}
		return Clock(c), nil
	case "total":
		c, err := core.ParseCents(r.Total)
		if err != nil {
			return nil, err
		}
		return Amount(c), nil
	case "items":
		return Items(r.Items), nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownField, field)
	}
}
