package core

// CheckType enumerates the closed set of input checks a rule may apply.
// Unknown external values surface as ErrUnsupportedCheckType at validation;
// inside the engine the set is matched exhaustively.
type CheckType string

const (
	CheckCharacterCount  CheckType = "character_count"
	CheckCents           CheckType = "cents_check"
	CheckTotal           CheckType = "total_check"
	CheckItemsCount      CheckType = "items_count"
	CheckItemDescription CheckType = "item_description"
	CheckDate            CheckType = "date_check"
	CheckTime            CheckType = "time_check"
)

// PolicyType enumerates the closed set of points calculations.
type PolicyType string

const (
	PolicyFlat          PolicyType = "extra_points"
	PolicyPerCharacter  PolicyType = "points_per_char"
	PolicyPerGroup      PolicyType = "points_per_group"
	PolicyPriceMultiple PolicyType = "price_multiplier"
)

// Parity selects odd or even day-of-month for date checks.
type Parity string

const (
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// RoundingMethod names how price-multiplier results are rounded. Only
// RoundUp exists today; the type stays open so unknown methods fail
// validation instead of silently defaulting.
type RoundingMethod string

const RoundUp RoundingMethod = "up"

// TimeRange is a half-open [Start, End) window at minute resolution.
type TimeRange struct {
	Start ClockMinutes
	End   ClockMinutes
}

// Contains reports whether t falls inside the window.
func (r TimeRange) Contains(t ClockMinutes) bool {
	return r.Start <= t && t < r.End
}

// Check is the typed condition a rule tests against one receipt field.
// One concrete variant exists per CheckType; the engine dispatches on the
// variant with an exhaustive type switch.
type Check interface {
	Type() CheckType
	Target() string
}

// CharacterCountCheck counts alphanumeric characters in a text field.
// It always fires; the count is the quantity the calculator multiplies.
type CharacterCountCheck struct {
	TargetField string
}

// CentsCheck matches when the field's fractional cents equal Value's
// fractional cents (e.g. Value 1.00 means a round-dollar amount).
type CentsCheck struct {
	TargetField string
	Value       Cents
}

// TotalCheck matches when the field amount is an exact multiple of Divisor.
type TotalCheck struct {
	TargetField string
	Divisor     Cents
}

// ItemsCountCheck groups items into chunks of GroupSize; it matches when at
// least one full group exists.
type ItemsCountCheck struct {
	TargetField string
	GroupSize   int
}

// ItemDescriptionCheck matches each item whose trimmed description length
// is a multiple of Divisor.
type ItemDescriptionCheck struct {
	TargetField string
	Divisor     int
}

// DateCheck matches when the date's day-of-month has the stated parity.
type DateCheck struct {
	TargetField string
	Parity      Parity
}

// TimeCheck matches when the field's time falls in Range.
type TimeCheck struct {
	TargetField string
	Range       TimeRange
}

func (c CharacterCountCheck) Type() CheckType  { return CheckCharacterCount }
func (c CentsCheck) Type() CheckType           { return CheckCents }
func (c TotalCheck) Type() CheckType           { return CheckTotal }
func (c ItemsCountCheck) Type() CheckType      { return CheckItemsCount }
func (c ItemDescriptionCheck) Type() CheckType { return CheckItemDescription }
func (c DateCheck) Type() CheckType            { return CheckDate }
func (c TimeCheck) Type() CheckType            { return CheckTime }

func (c CharacterCountCheck) Target() string  { return c.TargetField }
func (c CentsCheck) Target() string           { return c.TargetField }
func (c TotalCheck) Target() string           { return c.TargetField }
func (c ItemsCountCheck) Target() string      { return c.TargetField }
func (c ItemDescriptionCheck) Target() string { return c.TargetField }
func (c DateCheck) Target() string            { return c.TargetField }
func (c TimeCheck) Target() string            { return c.TargetField }

// Policy is the formula mapping a matched check's output to points.
// One concrete variant exists per PolicyType.
type Policy interface {
	PolicyType() PolicyType
}

// FlatPoints awards Extra points when the check matched.
type FlatPoints struct {
	Extra int64
}

// PerCharacterPoints awards PerChar points per counted character.
type PerCharacterPoints struct {
	PerChar int64
}

// PerGroupPoints awards PerGroup points per full item group.
type PerGroupPoints struct {
	PerGroup int64
}

// Rounding configures how a price-multiplier result is rounded. Precision
// is a cent value: 1.00 rounds up to whole currency units, 0.25 to
// quarters.
type Rounding struct {
	Method    RoundingMethod
	Precision Cents
}

// PriceMultiplier awards, per matching item, the item price times
// Multiplier, rounded per Rounding, summed across matching items.
type PriceMultiplier struct {
	Multiplier float64
	Rounding   Rounding
}

func (p FlatPoints) PolicyType() PolicyType         { return PolicyFlat }
func (p PerCharacterPoints) PolicyType() PolicyType { return PolicyPerCharacter }
func (p PerGroupPoints) PolicyType() PolicyType     { return PolicyPerGroup }
func (p PriceMultiplier) PolicyType() PolicyType    { return PolicyPriceMultiple }

// CompatiblePolicy returns the one policy type whose input matches the
// check type's output. A rule pairing anything else is a configuration
// error caught at validation.
func CompatiblePolicy(ct CheckType) (PolicyType, bool) {
	switch ct {
	case CheckCharacterCount:
		return PolicyPerCharacter, true
	case CheckItemsCount:
		return PolicyPerGroup, true
	case CheckItemDescription:
		return PolicyPriceMultiple, true
	case CheckCents, CheckTotal, CheckDate, CheckTime:
		return PolicyFlat, true
	default:
		return "", false
	}
}

// Rule is one configurable check-and-reward unit. Name is the handle used
// in validation error reports.
type Rule struct {
	Name   string
	Check  Check
	Policy Policy
}

// RuleSet is the ordered collection of active rules. A set is either fully
// valid or rejected wholesale; partial activation never happens.
type RuleSet struct {
	Rules []Rule
}

// Clone returns a copy with its own backing slice. Check and Policy
// variants are immutable value types, so a shallow element copy is deep.
func (rs RuleSet) Clone() RuleSet {
	out := RuleSet{Rules: make([]Rule, len(rs.Rules))}
	copy(out.Rules, rs.Rules)
	return out
}
