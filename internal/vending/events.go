package vending

import (
	"encoding/json"
	"strings"
)

type CommandType string

const (
	CommandDeposit  CommandType = "deposit"
	CommandPurchase CommandType = "purchase"
	CommandRefund   CommandType = "refund"
	CommandRestock  CommandType = "restock"
)

// Command is a customer or operator action received on the commands topic.
type Command struct {
	CommandID string          `json:"command_id"`
	Type      CommandType     `json:"type"`
	Amount    json.RawMessage `json:"amount,omitempty"`
	ItemCode  string          `json:"item_code,omitempty"`
	Item      *Item           `json:"item,omitempty"`
}

// DepositAmount returns the amount in cents, or 0 when the amount is missing,
// non-numeric or not a whole number.
func (c Command) DepositAmount() int {
	return ParseAmount(strings.Trim(string(c.Amount), `"`))
}

// Event reports the result of a Command on the events topic. ErrorCode is
// empty when the command succeeded.
type Event struct {
	EventID   string      `json:"event_id"`
	CommandID string      `json:"command_id"`
	MachineID string      `json:"machine_id"`
	Type      CommandType `json:"type"`
	Balance   int         `json:"balance"`
	ItemCode  string      `json:"item_code,omitempty"`
	Item      *Item       `json:"item,omitempty"`
	Change    *Coins      `json:"change,omitempty"`
	ErrorCode ErrorCode   `json:"error_code,omitempty"`
}
