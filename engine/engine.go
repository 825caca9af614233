package engine

import (
	"fmt"
	"sync"

	"receiptkit/core"
)

// RuleEngine owns the active rule set and scores receipts against it.
// Scoring takes a read lock for one pass; Replace validates the candidate
// outside the lock and swaps under a write lock, so concurrent scorers see
// either the entirely-old or entirely-new set, never a mix.
type RuleEngine struct {
	mu    sync.RWMutex
	rules core.RuleSet
}

// RuleScore is one rule's contribution to a receipt's total.
type RuleScore struct {
	Rule    string `json:"rule"`
	Matched bool   `json:"matched"`
	Points  int64  `json:"points"` // centipoints
}

// Score is the result of one scoring pass.
type Score struct {
	Total int64       `json:"total"`
	Rules []RuleScore `json:"rules,omitempty"`
}

// NewRuleEngine validates the initial set and returns an engine holding it.
func NewRuleEngine(rs core.RuleSet) (*RuleEngine, error) {
	if err := ValidateRuleSet(rs); err != nil {
		return nil, err
	}
	return &RuleEngine{rules: rs.Clone()}, nil
}

// Score evaluates every active rule against the receipt in sequence order
// and returns the rounded total plus per-rule contributions. Rules never
// interact, so the total is order-independent; order is kept for
// deterministic reporting. A malformed receipt aborts with no partial
// score.
func (e *RuleEngine) Score(r core.Receipt) (Score, error) {
	if err := r.Validate(); err != nil {
		return Score{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	result := Score{Rules: make([]RuleScore, 0, len(e.rules.Rules))}
	var centipoints int64
	for _, rule := range e.rules.Rules {
		value, err := Extract(r, rule.Check.Target())
		if err != nil {
			return Score{}, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		m, err := evaluate(rule.Check, value)
		if err != nil {
			return Score{}, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		pts, err := calculate(rule.Policy, m)
		if err != nil {
			return Score{}, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		centipoints += pts
		result.Rules = append(result.Rules, RuleScore{Rule: rule.Name, Matched: m.Matched, Points: pts})
	}
	result.Total = roundHalfUp(centipoints)
	return result, nil
}

// roundHalfUp converts accumulated centipoints to whole points.
func roundHalfUp(centipoints int64) int64 {
	if centipoints < 0 {
		return -((-centipoints + 50) / 100)
	}
	return (centipoints + 50) / 100
}

// Replace installs a new rule set after validating it in full. The
// candidate is checked outside the lock to keep writer hold time minimal;
// on failure the active set is untouched and every problem is reported.
func (e *RuleEngine) Replace(rs core.RuleSet) error {
	if err := ValidateRuleSet(rs); err != nil {
		return err
	}
	next := rs.Clone()

	e.mu.Lock()
	e.rules = next
	e.mu.Unlock()
	return nil
}

// Rules returns a copy of the active set, safe to serialize or mutate.
func (e *RuleEngine) Rules() core.RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules.Clone()
}

// Len reports the number of active rules.
func (e *RuleEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules.Rules)
}

// ValidateRuleSet checks every rule for structural completeness: known
// check and policy variants, a check↔policy pairing the calculators can
// consume, a known target field of the right kind, positive parameters,
// and unique names. Problems across all rules are collected into one
// ValidationErrors list.
func ValidateRuleSet(rs core.RuleSet) error {
	var errs core.ValidationErrors
	seen := make(map[string]struct{}, len(rs.Rules))

	for i, rule := range rs.Rules {
		name := rule.Name
		if name == "" {
			name = fmt.Sprintf("rules[%d]", i)
			errs = append(errs, core.ValidationError{Rule: name, Field: "name", Err: core.ErrInvalidRuleValue})
		} else if _, dup := seen[name]; dup {
			errs = append(errs, core.ValidationError{Rule: name, Field: "name", Err: core.ErrDuplicateRuleName})
		}
		seen[name] = struct{}{}

		errs = append(errs, validateRule(name, rule)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateRule(name string, rule core.Rule) core.ValidationErrors {
	var errs core.ValidationErrors

	if rule.Check == nil {
		errs = append(errs, core.ValidationError{Rule: name, Field: "input_check", Err: core.ErrUnsupportedCheckType})
		return errs
	}
	if rule.Policy == nil {
		errs = append(errs, core.ValidationError{Rule: name, Field: "points_calculation", Err: core.ErrUnsupportedCalculationType})
		return errs
	}

	expected, ok := ExpectedKind(rule.Check.Type())
	if !ok {
		errs = append(errs, core.ValidationError{Rule: name, Field: "input_check.type", Err: core.ErrUnsupportedCheckType})
		return errs
	}

	actual, known := FieldKindOf(rule.Check.Target())
	switch {
	case !known:
		errs = append(errs, core.ValidationError{
			Rule: name, Field: "input_check.target_field",
			Err: fmt.Errorf("%w: %q", core.ErrUnknownField, rule.Check.Target()),
		})
	case actual != expected:
		errs = append(errs, core.ValidationError{
			Rule: name, Field: "input_check.target_field",
			Err: fmt.Errorf("%w: %s expects a %s field, %q is %s",
				core.ErrTypeMismatch, rule.Check.Type(), expected, rule.Check.Target(), actual),
		})
	}

	if want, ok := core.CompatiblePolicy(rule.Check.Type()); !ok || rule.Policy.PolicyType() != want {
		errs = append(errs, core.ValidationError{
			Rule: name, Field: "points_calculation",
			Err: fmt.Errorf("%w: %s requires %s, got %s",
				core.ErrIncompatiblePolicy, rule.Check.Type(), want, rule.Policy.PolicyType()),
		})
	}

	errs = append(errs, validateCheckParams(name, rule.Check)...)
	errs = append(errs, validatePolicyParams(name, rule.Policy)...)
	return errs
}

func validateCheckParams(name string, check core.Check) core.ValidationErrors {
	var errs core.ValidationErrors
	invalid := func(field, reason string) {
		errs = append(errs, core.ValidationError{
			Rule: name, Field: field,
			Err: fmt.Errorf("%w: %s", core.ErrInvalidRuleValue, reason),
		})
	}

	switch c := check.(type) {
	case core.TotalCheck:
		if c.Divisor <= 0 {
			invalid("input_check.input_value", "divisor must be at least one cent")
		}
	case core.CentsCheck:
		if c.Value < 0 {
			invalid("input_check.input_value", "cents value must not be negative")
		}
	case core.ItemsCountCheck:
		if c.GroupSize < 1 {
			invalid("input_check.input_value", "group size must be a positive integer")
		}
	case core.ItemDescriptionCheck:
		if c.Divisor < 1 {
			invalid("input_check.input_value", "length divisor must be a positive integer")
		}
	case core.DateCheck:
		if c.Parity != core.ParityOdd && c.Parity != core.ParityEven {
			invalid("input_check.parity", `parity must be "odd" or "even"`)
		}
	case core.TimeCheck:
		if c.Range.End <= c.Range.Start {
			invalid("input_check.input_range", "range end must be after start")
		}
	}
	return errs
}

func validatePolicyParams(name string, policy core.Policy) core.ValidationErrors {
	var errs core.ValidationErrors

	if p, ok := policy.(core.PriceMultiplier); ok {
		if p.Rounding.Method != core.RoundUp {
			errs = append(errs, core.ValidationError{
				Rule: name, Field: "points_calculation.rounding.method",
				Err: fmt.Errorf("%w: %q", core.ErrUnsupportedRoundingMethod, p.Rounding.Method),
			})
		}
		if p.Rounding.Precision <= 0 {
			errs = append(errs, core.ValidationError{
				Rule: name, Field: "points_calculation.rounding.precision",
				Err: fmt.Errorf("%w: precision must be at least one cent", core.ErrInvalidRuleValue),
			})
		}
		if p.Multiplier < 0 {
			errs = append(errs, core.ValidationError{
				Rule: name, Field: "points_calculation.price_multiplier",
				Err: fmt.Errorf("%w: multiplier must not be negative", core.ErrInvalidRuleValue),
			})
		}
	}
	return errs
}
