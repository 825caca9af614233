// Package rulesdoc converts the external YAML rule document to and from
// the typed rule model. Parsing collects every per-rule problem into one
// core.ValidationErrors list so a bad document is reported in full.
package rulesdoc

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"receiptkit/core"
)

// Document is the top-level external shape: an ordered rule sequence.
type Document struct {
	Rules []RuleDoc `yaml:"rules"`
}

// RuleDoc is one rule in document form.
type RuleDoc struct {
	Name              string   `yaml:"name"`
	InputCheck        CheckDoc `yaml:"input_check"`
	PointsCalculation CalcDoc  `yaml:"points_calculation"`
}

// CheckDoc carries the check type tag plus its type-specific parameters.
type CheckDoc struct {
	Type        string    `yaml:"type"`
	TargetField string    `yaml:"target_field"`
	Condition   string    `yaml:"condition"`
	InputValue  *float64  `yaml:"input_value,omitempty"`
	InputRange  *RangeDoc `yaml:"input_range,omitempty"`
	Parity      string    `yaml:"parity,omitempty"`
}

// RangeDoc is a 24-hour HH:MM time window.
type RangeDoc struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// CalcDoc carries exactly one populated calculation variant.
type CalcDoc struct {
	ExtraPoints     *int64       `yaml:"extra_points,omitempty"`
	PointsPerChar   *int64       `yaml:"points_per_char,omitempty"`
	PointsPerGroup  *int64       `yaml:"points_per_group,omitempty"`
	PriceMultiplier *float64     `yaml:"price_multiplier,omitempty"`
	Rounding        *RoundingDoc `yaml:"rounding,omitempty"`
}

// RoundingDoc configures price-multiplier rounding.
type RoundingDoc struct {
	Method    string  `yaml:"method"`
	Precision float64 `yaml:"precision"`
}

// conditions the document must declare per check type.
var wantCondition = map[string]string{
	"character_count":  "alphanumeric",
	"cents_check":      "matches",
	"total_check":      "divisible",
	"items_count":      "group_size",
	"item_description": "divisible",
	"date_check":       "parity",
	"time_check":       "between",
}

// Parse decodes a YAML rule document into the typed rule set. Decoding
// problems in individual rules are collected; the document is accepted or
// rejected wholesale.
func Parse(data []byte) (core.RuleSet, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.RuleSet{}, fmt.Errorf("invalid rules document: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument converts an already-decoded document to the typed model.
func FromDocument(doc Document) (core.RuleSet, error) {
	rs := core.RuleSet{Rules: make([]core.Rule, 0, len(doc.Rules))}
	var errs core.ValidationErrors

	for i, rd := range doc.Rules {
		name := rd.Name
		if name == "" {
			name = fmt.Sprintf("rules[%d]", i)
		}

		check, checkErrs := convertCheck(name, rd.InputCheck)
		errs = append(errs, checkErrs...)

		policy, calcErrs := convertCalc(name, rd.PointsCalculation)
		errs = append(errs, calcErrs...)

		if check != nil && policy != nil {
			rs.Rules = append(rs.Rules, core.Rule{Name: rd.Name, Check: check, Policy: policy})
		}
	}

	if len(errs) > 0 {
		return core.RuleSet{}, errs
	}
	return rs, nil
}

func convertCheck(name string, cd CheckDoc) (core.Check, core.ValidationErrors) {
	var errs core.ValidationErrors
	fail := func(field string, err error) (core.Check, core.ValidationErrors) {
		errs = append(errs, core.ValidationError{Rule: name, Field: field, Err: err})
		return nil, errs
	}

	want, known := wantCondition[cd.Type]
	if !known {
		return fail("input_check.type", fmt.Errorf("%w: %q", core.ErrUnsupportedCheckType, cd.Type))
	}
	if cd.Condition != want {
		return fail("input_check.condition",
			fmt.Errorf("%w: %s requires condition %q, got %q", core.ErrInvalidRuleValue, cd.Type, want, cd.Condition))
	}

	switch cd.Type {
	case "character_count":
		return core.CharacterCountCheck{TargetField: cd.TargetField}, nil

	case "cents_check":
		c, err := wholeCents(cd.InputValue)
		if err != nil {
			return fail("input_check.input_value", err)
		}
		return core.CentsCheck{TargetField: cd.TargetField, Value: c}, nil

	case "total_check":
		c, err := wholeCents(cd.InputValue)
		if err != nil {
			return fail("input_check.input_value", err)
		}
		return core.TotalCheck{TargetField: cd.TargetField, Divisor: c}, nil

	case "items_count":
		n, err := wholeNumber(cd.InputValue)
		if err != nil {
			return fail("input_check.input_value", err)
		}
		return core.ItemsCountCheck{TargetField: cd.TargetField, GroupSize: n}, nil

	case "item_description":
		n, err := wholeNumber(cd.InputValue)
		if err != nil {
			return fail("input_check.input_value", err)
		}
		return core.ItemDescriptionCheck{TargetField: cd.TargetField, Divisor: n}, nil

	case "date_check":
		p := core.Parity(cd.Parity)
		if p != core.ParityOdd && p != core.ParityEven {
			return fail("input_check.parity",
				fmt.Errorf("%w: parity must be \"odd\" or \"even\", got %q", core.ErrInvalidRuleValue, cd.Parity))
		}
		return core.DateCheck{TargetField: cd.TargetField, Parity: p}, nil

	case "time_check":
		if cd.InputRange == nil {
			return fail("input_check.input_range", fmt.Errorf("%w: input_range is required", core.ErrInvalidRuleValue))
		}
		start, err := core.ParseClock(cd.InputRange.Start)
		if err != nil {
			return fail("input_check.input_range.start",
				fmt.Errorf("%w: %q is not a 24-hour HH:MM time", core.ErrInvalidRuleValue, cd.InputRange.Start))
		}
		end, err := core.ParseClock(cd.InputRange.End)
		if err != nil {
			return fail("input_check.input_range.end",
				fmt.Errorf("%w: %q is not a 24-hour HH:MM time", core.ErrInvalidRuleValue, cd.InputRange.End))
		}
		return core.TimeCheck{TargetField: cd.TargetField, Range: core.TimeRange{Start: start, End: end}}, nil
	}

	// unreachable: wantCondition gates the type set
	return fail("input_check.type", fmt.Errorf("%w: %q", core.ErrUnsupportedCheckType, cd.Type))
}

// wholeCents accepts a decimal amount only when it lands exactly on a
// cent; 0.005 is an author mistake, not half a cent to round.
func wholeCents(v *float64) (core.Cents, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: input_value is required", core.ErrInvalidRuleValue)
	}
	scaled := *v * 100
	if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		return 0, fmt.Errorf("%w: input_value must be a whole cent amount, got %v", core.ErrInvalidRuleValue, *v)
	}
	return core.Cents(int64(math.Round(scaled))), nil
}

func wholeNumber(v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: input_value is required", core.ErrInvalidRuleValue)
	}
	if *v != math.Trunc(*v) {
		return 0, fmt.Errorf("%w: input_value must be a whole number, got %v", core.ErrInvalidRuleValue, *v)
	}
	return int(*v), nil
}

func convertCalc(name string, cd CalcDoc) (core.Policy, core.ValidationErrors) {
	var errs core.ValidationErrors
	fail := func(field string, err error) (core.Policy, core.ValidationErrors) {
		errs = append(errs, core.ValidationError{Rule: name, Field: field, Err: err})
		return nil, errs
	}

	populated := 0
	for _, set := range []bool{cd.ExtraPoints != nil, cd.PointsPerChar != nil, cd.PointsPerGroup != nil, cd.PriceMultiplier != nil} {
		if set {
			populated++
		}
	}
	switch {
	case populated == 0:
		return fail("points_calculation", fmt.Errorf("%w: no calculation variant set", core.ErrUnsupportedCalculationType))
	case populated > 1:
		return fail("points_calculation", fmt.Errorf("%w: exactly one calculation variant may be set", core.ErrInvalidRuleValue))
	}

	switch {
	case cd.ExtraPoints != nil:
		return core.FlatPoints{Extra: *cd.ExtraPoints}, nil
	case cd.PointsPerChar != nil:
		return core.PerCharacterPoints{PerChar: *cd.PointsPerChar}, nil
	case cd.PointsPerGroup != nil:
		return core.PerGroupPoints{PerGroup: *cd.PointsPerGroup}, nil
	default:
		if cd.Rounding == nil {
			return fail("points_calculation.rounding",
				fmt.Errorf("%w: price_multiplier requires a rounding config", core.ErrInvalidRuleValue))
		}
		prec, err := wholeCents(&cd.Rounding.Precision)
		if err != nil {
			return fail("points_calculation.rounding.precision", err)
		}
		return core.PriceMultiplier{
			Multiplier: *cd.PriceMultiplier,
			Rounding: core.Rounding{
				Method:    core.RoundingMethod(cd.Rounding.Method),
				Precision: prec,
			},
		}, nil
	}
}

// ToDocument converts a typed rule set back to document form.
// Parse(Marshal(rs)) reproduces rs exactly for any valid set.
func ToDocument(rs core.RuleSet) (Document, error) {
	doc := Document{Rules: make([]RuleDoc, 0, len(rs.Rules))}
	for _, rule := range rs.Rules {
		rd := RuleDoc{Name: rule.Name}

		cond, ok := wantCondition[string(rule.Check.Type())]
		if !ok {
			return Document{}, fmt.Errorf("%w: %q", core.ErrUnsupportedCheckType, rule.Check.Type())
		}
		cd := CheckDoc{Type: string(rule.Check.Type()), TargetField: rule.Check.Target(), Condition: cond}
		switch c := rule.Check.(type) {
		case core.CharacterCountCheck:
			// no parameters
		case core.CentsCheck:
			cd.InputValue = floatPtr(c.Value.Float())
		case core.TotalCheck:
			cd.InputValue = floatPtr(c.Divisor.Float())
		case core.ItemsCountCheck:
			cd.InputValue = floatPtr(float64(c.GroupSize))
		case core.ItemDescriptionCheck:
			cd.InputValue = floatPtr(float64(c.Divisor))
		case core.DateCheck:
			cd.Parity = string(c.Parity)
		case core.TimeCheck:
			cd.InputRange = &RangeDoc{Start: c.Range.Start.String(), End: c.Range.End.String()}
		}
		rd.InputCheck = cd

		switch p := rule.Policy.(type) {
		case core.FlatPoints:
			rd.PointsCalculation.ExtraPoints = int64Ptr(p.Extra)
		case core.PerCharacterPoints:
			rd.PointsCalculation.PointsPerChar = int64Ptr(p.PerChar)
		case core.PerGroupPoints:
			rd.PointsCalculation.PointsPerGroup = int64Ptr(p.PerGroup)
		case core.PriceMultiplier:
			rd.PointsCalculation.PriceMultiplier = floatPtr(p.Multiplier)
			rd.PointsCalculation.Rounding = &RoundingDoc{
				Method:    string(p.Rounding.Method),
				Precision: p.Rounding.Precision.Float(),
			}
		default:
			return Document{}, fmt.Errorf("%w: %q", core.ErrUnsupportedCalculationType, rule.Policy.PolicyType())
		}

		doc.Rules = append(doc.Rules, rd)
	}
	return doc, nil
}

// Marshal serializes a typed rule set to its YAML document form.
func Marshal(rs core.RuleSet) ([]byte, error) {
	doc, err := ToDocument(rs)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// LoadFile parses a rule document from disk.
func LoadFile(path string) (core.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.RuleSet{}, err
	}
	return Parse(data)
}

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }
