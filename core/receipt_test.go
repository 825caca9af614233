package core

import (
	"errors"
	"testing"
)

func validReceipt() Receipt {
	return Receipt{
		Retailer:     "Target",
		PurchaseDate: "2022-01-01",
		PurchaseTime: "13:01",
		Items: []Item{
			{ShortDescription: "Mountain Dew 12PK", Price: "6.49"},
			{ShortDescription: "Emils Cheese Pizza", Price: "12.25"},
		},
		Total: "18.74",
	}
}

func TestValidateAcceptsWellFormedReceipt(t *testing.T) {
	if err := validReceipt().Validate(); err != nil {
		t.Fatalf("expected valid receipt, got %v", err)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := map[string]func(*Receipt){
		"bad retailer":     func(r *Receipt) { r.Retailer = "Tar@get!" },
		"bad date format":  func(r *Receipt) { r.PurchaseDate = "01-01-2022" },
		"impossible date":  func(r *Receipt) { r.PurchaseDate = "2022-13-40" },
		"bad time":         func(r *Receipt) { r.PurchaseTime = "25:99" },
		"non-numeric total": func(r *Receipt) { r.Total = "eighteen" },
		"no items":         func(r *Receipt) { r.Items = nil },
		"bad item price":   func(r *Receipt) { r.Items[0].Price = "6.4" },
	}
	for name, mutate := range cases {
		r := validReceipt()
		mutate(&r)
		err := r.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !errors.Is(err, ErrMalformedReceipt) {
			t.Fatalf("%s: expected ErrMalformedReceipt, got %v", name, err)
		}
	}
}

func TestParseCents(t *testing.T) {
	c, err := ParseCents("18.74")
	if err != nil {
		t.Fatal(err)
	}
	if c != 1874 {
		t.Fatalf("expected 1874, got %d", c)
	}
	if c.String() != "18.74" {
		t.Fatalf("round trip: got %q", c.String())
	}
	if _, err := ParseCents("18.7"); !errors.Is(err, ErrMalformedReceipt) {
		t.Fatalf("expected ErrMalformedReceipt, got %v", err)
	}
}

func TestDecimalCents(t *testing.T) {
	if DecimalCents(0.25) != 25 {
		t.Fatalf("0.25 should be 25 cents, got %d", DecimalCents(0.25))
	}
	if DecimalCents(1.00) != 100 {
		t.Fatalf("1.00 should be 100 cents, got %d", DecimalCents(1.00))
	}
	// 0.1 has no exact float64 representation; rounding must absorb it.
	if DecimalCents(0.1) != 10 {
		t.Fatalf("0.1 should be 10 cents, got %d", DecimalCents(0.1))
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("13:01")
	if err != nil {
		t.Fatal(err)
	}
	if c != 13*60+1 {
		t.Fatalf("expected 781, got %d", c)
	}
	if c.String() != "13:01" {
		t.Fatalf("round trip: got %q", c.String())
	}
	if _, err := ParseClock("24:00"); err == nil {
		t.Fatal("expected error for 24:00")
	}
}

func TestTimeRangeHalfOpen(t *testing.T) {
	r := TimeRange{Start: 14 * 60, End: 16 * 60}
	if r.Contains(13*60 + 1) {
		t.Fatal("13:01 should be outside")
	}
	if !r.Contains(14 * 60) {
		t.Fatal("start should be inside")
	}
	if r.Contains(16 * 60) {
		t.Fatal("end should be outside")
	}
}

func TestTrimmedLength(t *testing.T) {
	if got := TrimmedLength("   Klarbrunn 12-PK 12 FL OZ  "); got != 24 {
		t.Fatalf("expected 24, got %d", got)
	}
	if got := TrimmedLength("Emils Cheese Pizza"); got != 18 {
		t.Fatalf("expected 18, got %d", got)
	}
}
