package rulesdoc

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"receiptkit/core"
)

func TestDefaultParses(t *testing.T) {
	rs := Default()
	if len(rs.Rules) != 7 {
		t.Fatalf("expected 7 default rules, got %d", len(rs.Rules))
	}

	byName := make(map[string]core.Rule, len(rs.Rules))
	for _, r := range rs.Rules {
		byName[r.Name] = r
	}

	quarter, ok := byName["quarter_multiple_total"].Check.(core.TotalCheck)
	if !ok {
		t.Fatalf("quarter_multiple_total check = %T, want TotalCheck", byName["quarter_multiple_total"].Check)
	}
	if quarter.Divisor != 25 {
		t.Errorf("quarter divisor = %d cents, want 25", quarter.Divisor)
	}

	desc, ok := byName["item_description_length"].Policy.(core.PriceMultiplier)
	if !ok {
		t.Fatalf("item_description_length policy = %T, want PriceMultiplier", byName["item_description_length"].Policy)
	}
	if desc.Multiplier != 0.2 || desc.Rounding.Method != core.RoundUp || desc.Rounding.Precision != 100 {
		t.Errorf("unexpected price multiplier policy: %+v", desc)
	}

	afternoon, ok := byName["afternoon_purchase"].Check.(core.TimeCheck)
	if !ok {
		t.Fatalf("afternoon_purchase check = %T, want TimeCheck", byName["afternoon_purchase"].Check)
	}
	if afternoon.Range.Start != 14*60 || afternoon.Range.End != 16*60 {
		t.Errorf("afternoon range = %v, want 14:00-16:00", afternoon.Range)
	}
}

func TestParseRejectsUnknownCheckType(t *testing.T) {
	doc := `rules:
  - name: mystery
    input_check:
      type: bogus_check
      target_field: total
      condition: matches
    points_calculation:
      extra_points: 5
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, core.ErrUnsupportedCheckType) {
		t.Fatalf("err = %v, want ErrUnsupportedCheckType", err)
	}

	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err is %T, want ValidationErrors", err)
	}
	if verrs[0].Rule != "mystery" || verrs[0].Field != "input_check.type" {
		t.Errorf("unexpected error location: %+v", verrs[0])
	}
}

func TestParseCollectsAllErrors(t *testing.T) {
	doc := `rules:
  - name: bad_condition
    input_check:
      type: date_check
      target_field: purchaseDate
      condition: divisible
      parity: odd
    points_calculation:
      extra_points: 6
  - name: two_variants
    input_check:
      type: total_check
      target_field: total
      condition: divisible
      input_value: 0.25
    points_calculation:
      extra_points: 25
      points_per_char: 1
  - name: no_variant
    input_check:
      type: cents_check
      target_field: total
      condition: matches
      input_value: 1.00
    points_calculation: {}
`
	_, err := Parse([]byte(doc))
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err is %T, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Fatalf("expected 3 collected errors, got %d: %v", len(verrs), verrs)
	}
	if !errors.Is(err, core.ErrUnsupportedCalculationType) {
		t.Errorf("expected ErrUnsupportedCalculationType among errors, got %v", err)
	}
	if !errors.Is(err, core.ErrInvalidRuleValue) {
		t.Errorf("expected ErrInvalidRuleValue among errors, got %v", err)
	}
}

func TestParseFractionalGroupSize(t *testing.T) {
	doc := `rules:
  - name: half_groups
    input_check:
      type: items_count
      target_field: items
      condition: group_size
      input_value: 2.5
    points_calculation:
      points_per_group: 5
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, core.ErrInvalidRuleValue) {
		t.Fatalf("err = %v, want ErrInvalidRuleValue", err)
	}
}

func TestParseRejectsSubCentValue(t *testing.T) {
	doc := `rules:
  - name: half_cent
    input_check:
      type: total_check
      target_field: total
      condition: divisible
      input_value: 0.005
    points_calculation:
      extra_points: 25
`
	_, err := Parse([]byte(doc))
	if !errors.Is(err, core.ErrInvalidRuleValue) {
		t.Fatalf("err = %v, want ErrInvalidRuleValue", err)
	}

	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err is %T, want ValidationErrors", err)
	}
	if verrs[0].Rule != "half_cent" || verrs[0].Field != "input_check.input_value" {
		t.Errorf("unexpected error location: %+v", verrs[0])
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	rs := Default()
	data, err := Marshal(rs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse after Marshal: %v", err)
	}
	if !reflect.DeepEqual(rs, back) {
		t.Errorf("round trip changed the rule set:\nbefore %+v\nafter  %+v", rs, back)
	}
}

func TestMarshalEmitsDocumentTags(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text := string(data)
	for _, want := range []string{"input_check", "points_calculation", "target_field", "price_multiplier", "input_range"} {
		if !strings.Contains(text, want) {
			t.Errorf("marshaled document is missing %q:\n%s", want, text)
		}
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("rules: [")); err == nil {
		t.Fatal("expected a parse error for truncated YAML")
	}
}
