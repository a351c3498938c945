package model

import "time"

// ContractType is the digit contract flavor sent to the broker.
type ContractType string

const (
	DigitMatch  ContractType = "DIGITMATCH"
	DigitDiffer ContractType = "DIGITDIFF"
	DigitOver   ContractType = "DIGITOVER"
	DigitUnder  ContractType = "DIGITUNDER"
)

// OrderState is the lifecycle state of a trade ledger entry.
// A trade transitions from Pending to exactly one terminal state.
type OrderState string

const (
	OrderPending OrderState = "PENDING"
	OrderWon     OrderState = "WON"
	OrderLost    OrderState = "LOST"
)

// TradeOrder is one row of the trade ledger. Entries are created on
// submission and updated once on settlement; they are never deleted except
// by an explicit bulk clear.
type TradeOrder struct {
	CorrelationID   string       `json:"correlation_id"`
	Instrument      string       `json:"instrument"`
	ContractType    ContractType `json:"contract_type"`
	Digit           int          `json:"digit"`
	Stake           float64      `json:"stake"`
	DurationTicks   int          `json:"duration_ticks"`
	State           OrderState   `json:"state"`
	SettlementDigit *int         `json:"settlement_digit,omitempty"`
	Profit          *float64     `json:"profit,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	SettledAt       *time.Time   `json:"settled_at,omitempty"`
}
