package engine

import (
	"fmt"
	"time"
	"unicode"

	"receiptkit/core"
)

// Match is an evaluator's verdict plus the auxiliary data the paired
// calculator consumes: a character count, a full-group count, or the items
// whose descriptions matched.
type Match struct {
	Matched    bool
	CharCount  int
	GroupCount int
	Items      []core.Item
}

// evaluate runs one check against the already-extracted field value.
// Dispatch is an exhaustive type switch over the closed check set; a value
// of the wrong kind can only reach here through a bug, since kinds are
// verified at rule-set validation.
func evaluate(check core.Check, value FieldValue) (Match, error) {
	switch c := check.(type) {
	case core.CharacterCountCheck:
		text, ok := value.(Text)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		count := 0
		for _, r := range string(text) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				count++
			}
		}
		// Degenerate check: always fires, the count scales the reward.
		return Match{Matched: true, CharCount: count}, nil

	case core.CentsCheck:
		amount, ok := value.(Amount)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		return Match{Matched: core.Cents(amount)%100 == c.Value%100}, nil

	case core.TotalCheck:
		amount, ok := value.(Amount)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		return Match{Matched: core.Cents(amount)%c.Divisor == 0}, nil

	case core.ItemsCountCheck:
		items, ok := value.(Items)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		groups := len(items) / c.GroupSize
		return Match{Matched: groups >= 1, GroupCount: groups}, nil

	case core.ItemDescriptionCheck:
		items, ok := value.(Items)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		var matched []core.Item
		for _, it := range items {
			if core.TrimmedLength(it.ShortDescription)%c.Divisor == 0 {
				matched = append(matched, it)
			}
		}
		return Match{Matched: len(matched) > 0, Items: matched}, nil

	case core.DateCheck:
		date, ok := value.(Date)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		day := time.Time(date).Day()
		if c.Parity == core.ParityEven {
			return Match{Matched: day%2 == 0}, nil
		}
		return Match{Matched: day%2 == 1}, nil

	case core.TimeCheck:
		clock, ok := value.(Clock)
		if !ok {
			return Match{}, kindMismatch(check, value)
		}
		return Match{Matched: c.Range.Contains(core.ClockMinutes(clock))}, nil

	default:
		return Match{}, fmt.Errorf("%w: %q", core.ErrUnsupportedCheckType, check.Type())
	}
}

func kindMismatch(check core.Check, value FieldValue) error {
	return fmt.Errorf("%w: %s check got %s field %q",
		core.ErrTypeMismatch, check.Type(), value.Kind(), check.Target())
}
