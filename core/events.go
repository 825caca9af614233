package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventReceiptScored EventType = "receipt_scored"
	EventRulesReplaced EventType = "rules_replaced"
)

// Event represents an immutable domain event.
type Event struct {
	Type      EventType      `json:"type"`
	Time      time.Time      `json:"time"`
	ReceiptID string         `json:"receipt_id,omitempty"`
	Retailer  string         `json:"retailer,omitempty"`
	Points    int64          `json:"points,omitempty"`
	RuleCount int            `json:"rule_count,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewReceiptScored(id, retailer string, points int64, ruleCount int) Event {
	return Event{Type: EventReceiptScored, Time: time.Now().UTC(), ReceiptID: id, Retailer: retailer, Points: points, RuleCount: ruleCount}
}

func NewRulesReplaced(ruleCount int) Event {
	return Event{Type: EventRulesReplaced, Time: time.Now().UTC(), RuleCount: ruleCount}
}
