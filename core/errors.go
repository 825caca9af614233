package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for receipt scoring and rule-set validation.
var (
	// ErrMalformedReceipt indicates a structurally invalid receipt; scoring
	// aborts with no partial score.
	ErrMalformedReceipt = errors.New("malformed receipt")

	// ErrUnknownField indicates a rule targets a field no receipt has.
	ErrUnknownField = errors.New("unknown receipt field")

	// ErrTypeMismatch indicates a rule targets a field whose kind is
	// incompatible with its check type.
	ErrTypeMismatch = errors.New("field kind incompatible with check type")

	// ErrUnsupportedCheckType indicates an unrecognized input_check type.
	ErrUnsupportedCheckType = errors.New("unsupported check type")

	// ErrUnsupportedCalculationType indicates an unrecognized
	// points_calculation variant.
	ErrUnsupportedCalculationType = errors.New("unsupported points calculation")

	// ErrUnsupportedRoundingMethod indicates a rounding method other than "up".
	ErrUnsupportedRoundingMethod = errors.New("unsupported rounding method")

	// ErrIncompatiblePolicy indicates a check type paired with a points
	// calculation that cannot consume its output.
	ErrIncompatiblePolicy = errors.New("points calculation incompatible with check type")

	// ErrDuplicateRuleName indicates two rules in one set share a name.
	ErrDuplicateRuleName = errors.New("duplicate rule name")

	// ErrInvalidRuleValue indicates a rule parameter out of range
	// (non-positive divisor, empty time range, sub-cent precision).
	ErrInvalidRuleValue = errors.New("invalid rule parameter")

	// ErrReceiptNotFound indicates no stored receipt for the requested id.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrRulesNotFound indicates storage holds no persisted rule document.
	ErrRulesNotFound = errors.New("no stored rule document")
)

// ValidationError reports one problem with one rule in a candidate set.
type ValidationError struct {
	Rule  string // rule name, or "rules[i]" when the name itself is missing
	Field string // offending document field, when known
	Err   error
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("rule %q: %s: %v", e.Rule, e.Field, e.Err)
	}
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Err)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors is the full list of problems found in a candidate rule
// set. Replace always reports every invalid rule at once, not just the
// first, so operators can fix a document in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "rule set validation failed: " + strings.Join(msgs, "; ")
}

// Is reports whether any contained error matches target, so callers can
// probe a rejected set with errors.Is(err, core.ErrUnsupportedCheckType).
func (e ValidationErrors) Is(target error) bool {
	for _, v := range e {
		if errors.Is(v.Err, target) {
			return true
		}
	}
	return false
}
