package core

import "testing"

func TestCompatiblePolicy(t *testing.T) {
	cases := []struct {
		check CheckType
		want  PolicyType
	}{
		{CheckCharacterCount, PolicyPerCharacter},
		{CheckCents, PolicyFlat},
		{CheckTotal, PolicyFlat},
		{CheckItemsCount, PolicyPerGroup},
		{CheckItemDescription, PolicyPriceMultiple},
		{CheckDate, PolicyFlat},
		{CheckTime, PolicyFlat},
	}
	for _, c := range cases {
		got, ok := CompatiblePolicy(c.check)
		if !ok || got != c.want {
			t.Fatalf("%s: expected %s, got %s (ok=%v)", c.check, c.want, got, ok)
		}
	}
	if _, ok := CompatiblePolicy(CheckType("bogus_check")); ok {
		t.Fatal("bogus check type should have no compatible policy")
	}
}

func TestRuleSetCloneIsIndependent(t *testing.T) {
	rs := RuleSet{Rules: []Rule{
		{Name: "a", Check: DateCheck{TargetField: "purchaseDate", Parity: ParityOdd}, Policy: FlatPoints{Extra: 6}},
		{Name: "b", Check: CharacterCountCheck{TargetField: "retailer"}, Policy: PerCharacterPoints{PerChar: 1}},
	}}
	cp := rs.Clone()
	cp.Rules[0].Name = "mutated"
	if rs.Rules[0].Name != "a" {
		t.Fatal("clone shares backing storage with original")
	}
}

func TestValidationErrorsIs(t *testing.T) {
	errs := ValidationErrors{
		{Rule: "one", Err: ErrUnsupportedCheckType},
		{Rule: "two", Field: "input_value", Err: ErrInvalidRuleValue},
	}
	if !errs.Is(ErrUnsupportedCheckType) {
		t.Fatal("expected match on ErrUnsupportedCheckType")
	}
	if errs.Is(ErrDuplicateRuleName) {
		t.Fatal("unexpected match on ErrDuplicateRuleName")
	}
	if errs.Error() == "" {
		t.Fatal("expected message")
	}
}
