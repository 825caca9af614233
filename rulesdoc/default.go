package rulesdoc

import "receiptkit/core"

// DefaultYAML is the built-in rule document used when no external
// configuration is supplied.
const DefaultYAML = `rules:
  - name: retailer_name_alphanumeric
    input_check:
      type: character_count
      target_field: retailer
      condition: alphanumeric
    points_calculation:
      points_per_char: 1
  - name: round_dollar_total
    input_check:
      type: cents_check
      target_field: total
      condition: matches
      input_value: 1.00
    points_calculation:
      extra_points: 50
  - name: quarter_multiple_total
    input_check:
      type: total_check
      target_field: total
      condition: divisible
      input_value: 0.25
    points_calculation:
      extra_points: 25
  - name: item_pair_bonus
    input_check:
      type: items_count
      target_field: items
      condition: group_size
      input_value: 2
    points_calculation:
      points_per_group: 5
  - name: item_description_length
    input_check:
      type: item_description
      target_field: items
      condition: divisible
      input_value: 3
    points_calculation:
      price_multiplier: 0.2
      rounding:
        method: up
        precision: 1.00
  - name: odd_purchase_day
    input_check:
      type: date_check
      target_field: purchaseDate
      condition: parity
      parity: odd
    points_calculation:
      extra_points: 6
  - name: afternoon_purchase
    input_check:
      type: time_check
      target_field: purchaseTime
      condition: between
      input_range:
        start: "14:00"
        end: "16:00"
    points_calculation:
      extra_points: 10
`

// MustParse parses a document and panics on failure. For use with
// known-good documents such as DefaultYAML.
func MustParse(data []byte) core.RuleSet {
	rs, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return rs
}

// Default returns the built-in rule set.
func Default() core.RuleSet {
	return MustParse([]byte(DefaultYAML))
}
